package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/singleflight"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/tarprint/cache"
	"github.com/meigma/tarprint/internal/archive"
	"github.com/meigma/tarprint/manifest"
)

// emptyConfig is the config blob required by OCI image manifests.
var emptyConfig = []byte("{}")

// Store implements cache.Store on top of an OCI target.
//
// Concurrent lookups of the same key share a single manifest
// resolution. Store is safe for concurrent use.
type Store struct {
	target    oras.Target
	logger    *slog.Logger
	manifests singleflight.Group
}

var _ cache.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for push and fetch events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store backed by target.
func New(target oras.Target, opts ...Option) *Store {
	s := &Store{target: target}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Tag returns the registry tag used for key.
func Tag(key digest.Digest) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("invalid key %q: %w", key, err)
	}
	return key.Encoded(), nil
}

// Has reports whether an artifact is tagged with key.
func (s *Store) Has(ctx context.Context, key digest.Digest) (bool, error) {
	tag, err := Tag(key)
	if err != nil {
		return false, err
	}
	if _, err := s.target.Resolve(ctx, tag); err != nil {
		if errors.Is(err, errdef.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get returns a reader for the archive layer of the artifact tagged with key.
func (s *Store) Get(ctx context.Context, key digest.Digest) (io.ReadCloser, error) {
	m, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	layer, ok := findLayer(m, isArchiveMediaType)
	if !ok {
		return nil, fmt.Errorf("%w: archive", ErrMissingLayer)
	}
	rc, err := s.target.Fetch(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("fetch archive: %w", mapError(err))
	}
	return rc, nil
}

// Put pushes the archive read from r under key. The archive is buffered in
// memory because registry uploads need the digest and size up front.
func (s *Store) Put(ctx context.Context, key digest.Digest, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	_, err = s.Push(ctx, key, data, nil)
	return err
}

// Push pushes an archive and, when m is non-nil, its manifest as one artifact
// tagged with key. The manifest's fingerprint is recorded as an annotation.
// It returns the descriptor of the pushed OCI manifest.
func (s *Store) Push(ctx context.Context, key digest.Digest, data []byte, m *manifest.Manifest) (ocispec.Descriptor, error) {
	tag, err := Tag(key)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	configDesc, err := s.pushBlob(ctx, ocispec.MediaTypeEmptyJSON, emptyConfig)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push config: %w", err)
	}

	archiveDesc, err := s.pushBlob(ctx, archiveMediaType(archive.Detect(data)), data)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push archive: %w", err)
	}
	layers := []ocispec.Descriptor{archiveDesc}
	annotations := map[string]string{
		AnnotationKey: key.String(),
	}

	if m != nil {
		manifestDesc, pushErr := s.pushBlob(ctx, MediaTypeManifest, manifest.Encode(m))
		if pushErr != nil {
			return ocispec.Descriptor{}, fmt.Errorf("push manifest layer: %w", pushErr)
		}
		layers = append(layers, manifestDesc)
		annotations[AnnotationFingerprint] = m.Fingerprint.String()
	}

	// No creation timestamp: the same archive always yields the same manifest.
	ociManifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       configDesc,
		Layers:       layers,
		Annotations:  annotations,
	}
	manifestJSON, err := json.Marshal(ociManifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	desc, err := s.pushBlob(ctx, ocispec.MediaTypeImageManifest, manifestJSON)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", err)
	}
	desc.ArtifactType = ArtifactType

	if err := s.target.Tag(ctx, desc, tag); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", tag, mapError(err))
	}
	s.log().Debug("pushed archive",
		"key", key,
		"tag", tag,
		"archive_size", archiveDesc.Size,
		"with_manifest", m != nil)
	return desc, nil
}

// FetchManifest returns the file manifest stored alongside the archive
// tagged with key. It returns ErrMissingLayer if the artifact was pushed
// without one.
func (s *Store) FetchManifest(ctx context.Context, key digest.Digest) (*manifest.Manifest, error) {
	m, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	layer, ok := findLayer(m, func(mediaType string) bool { return mediaType == MediaTypeManifest })
	if !ok {
		return nil, fmt.Errorf("%w: manifest", ErrMissingLayer)
	}
	data, err := content.FetchAll(ctx, s.target, layer)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest layer: %w", mapError(err))
	}
	decoded, err := manifest.Decode(data)
	if err != nil {
		return nil, err
	}
	if want := m.Annotations[AnnotationFingerprint]; decoded.Fingerprint.String() != want {
		return nil, fmt.Errorf("%w: manifest records %s, artifact annotated with %q", ErrFingerprintMismatch, decoded.Fingerprint, want)
	}
	return decoded, nil
}

// resolve fetches the OCI manifest tagged with key.
func (s *Store) resolve(ctx context.Context, key digest.Digest) (ocispec.Manifest, error) {
	tag, err := Tag(key)
	if err != nil {
		return ocispec.Manifest{}, err
	}

	v, err, shared := s.manifests.Do(tag, func() (any, error) {
		desc, resolveErr := s.target.Resolve(ctx, tag)
		if resolveErr != nil {
			return nil, fmt.Errorf("resolve %q: %w", tag, mapError(resolveErr))
		}
		if desc.MediaType != "" && desc.MediaType != ocispec.MediaTypeImageManifest {
			return nil, fmt.Errorf("%w: unsupported media type %s", ErrNotArtifact, desc.MediaType)
		}
		data, fetchErr := content.FetchAll(ctx, s.target, desc)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch manifest: %w", mapError(fetchErr))
		}
		var m ocispec.Manifest
		if jsonErr := json.Unmarshal(data, &m); jsonErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotArtifact, jsonErr)
		}
		return m, nil
	})
	if err != nil {
		return ocispec.Manifest{}, err
	}
	if shared {
		s.log().Debug("shared manifest resolution", "key", key)
	}

	m, _ := v.(ocispec.Manifest)
	if m.ArtifactType != ArtifactType {
		return ocispec.Manifest{}, fmt.Errorf("%w: artifact type %q", ErrNotArtifact, m.ArtifactType)
	}
	if got := m.Annotations[AnnotationKey]; got != key.String() {
		return ocispec.Manifest{}, fmt.Errorf("%w: artifact annotated with %q", ErrKeyMismatch, got)
	}
	return m, nil
}

// pushBlob pushes data unless the target already has it.
func (s *Store) pushBlob(ctx context.Context, mediaType string, data []byte) (ocispec.Descriptor, error) {
	desc := content.NewDescriptorFromBytes(mediaType, data)
	exists, err := s.target.Exists(ctx, desc)
	if err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	if exists {
		return desc, nil
	}
	if err := s.target.Push(ctx, desc, bytes.NewReader(data)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

func findLayer(m ocispec.Manifest, match func(mediaType string) bool) (ocispec.Descriptor, bool) {
	for _, layer := range m.Layers {
		if match(layer.MediaType) {
			return layer, true
		}
	}
	return ocispec.Descriptor{}, false
}
