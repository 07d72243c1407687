package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const defaultUserAgent = "tarprint/1.0"

type remoteConfig struct {
	plainHTTP bool
	userAgent string
	anonymous bool
	credStore credentials.Store
}

// RemoteOption configures NewRepository.
type RemoteOption func(*remoteConfig)

// WithPlainHTTP uses HTTP instead of HTTPS for registry requests.
func WithPlainHTTP(plain bool) RemoteOption {
	return func(c *remoteConfig) {
		c.plainHTTP = plain
	}
}

// WithUserAgent sets the User-Agent header sent to the registry.
func WithUserAgent(ua string) RemoteOption {
	return func(c *remoteConfig) {
		c.userAgent = ua
	}
}

// WithCredentialStore sets the store used to look up registry credentials.
// Defaults to the docker credential store.
func WithCredentialStore(store credentials.Store) RemoteOption {
	return func(c *remoteConfig) {
		c.credStore = store
	}
}

// WithAnonymous skips credential lookup entirely.
func WithAnonymous() RemoteOption {
	return func(c *remoteConfig) {
		c.anonymous = true
	}
}

// NewRepository returns an ORAS repository for ref, which names a
// repository without a tag or digest (e.g. "ghcr.io/acme/builds").
func NewRepository(ref string, opts ...RemoteOption) (*remote.Repository, error) {
	cfg := remoteConfig{userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(&cfg)
	}

	parsed, err := registry.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if parsed.Reference != "" {
		return nil, fmt.Errorf("%w: %q must not include a tag or digest", ErrInvalidReference, ref)
	}

	if !cfg.anonymous && cfg.credStore == nil {
		store, storeErr := DefaultCredentialStore()
		if storeErr != nil {
			return nil, fmt.Errorf("load credentials: %w", storeErr)
		}
		cfg.credStore = store
	}

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo.PlainHTTP = cfg.plainHTTP
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if cfg.anonymous || cfg.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return cfg.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{cfg.userAgent},
		},
	}
	return repo, nil
}

// DefaultCredentialStore returns a credential store that reads from
// Docker config (~/.docker/config.json) and credential helpers.
func DefaultCredentialStore() (credentials.Store, error) {
	return credentials.NewStoreFromDocker(credentials.StoreOptions{})
}

// StaticCredentials returns a credential store with a single static credential
// for the specified registry host.
func StaticCredentials(host, username, password string) credentials.Store {
	return &staticStore{
		host: normalizeServerAddress(host),
		cred: auth.Credential{
			Username: username,
			Password: password,
		},
	}
}

// staticStore implements credentials.Store for a single static credential.
type staticStore struct {
	host string
	cred auth.Credential
}

func (s *staticStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	if normalizeServerAddress(serverAddress) == s.host {
		return s.cred, nil
	}
	return auth.EmptyCredential, nil
}

func (s *staticStore) Put(context.Context, string, auth.Credential) error {
	return errors.New("static credential store is read-only")
}

func (s *staticStore) Delete(context.Context, string) error {
	return errors.New("static credential store is read-only")
}

// normalizeServerAddress extracts the host[:port] from a server address.
func normalizeServerAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr, _, _ = strings.Cut(addr, "/")
	return addr
}
