package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/tarprint"
	"github.com/meigma/tarprint/cache"
	"github.com/meigma/tarprint/cache/disk"
	"github.com/meigma/tarprint/manifest"
	"github.com/meigma/tarprint/registry"
)

// errSourceChanged reports that the inputs changed between the planning
// pass and the archive build.
var errSourceChanged = errors.New("source files changed while archiving")

type createFlags struct {
	output   string
	manifest string
	push     bool
}

func newCreateCmd(a *app) *cobra.Command {
	var f createFlags
	cmd := &cobra.Command{
		Use:   "create PATH...",
		Short: "Write a deterministic archive of files and directories",
		Long: `Write a deterministic tar archive of the given files and directories and
print its fingerprint.

Paths are relative to --source. Directories are walked recursively; symbolic
links inside them are skipped. Each file is stored under --destination.

With --cache-dir, archives are reused from and stored in a local cache. With
--registry, a missing archive is first looked up in the registry; --push also
uploads the archive and its manifest there.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			return a.runCreate(cmd, paths, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "-", "archive file to write (- for stdout)")
	flags.StringVar(&f.manifest, "manifest", "", "also write a manifest describing the archive to this file")
	flags.BoolVar(&f.push, "push", false, "push the archive and manifest to --registry")
	flags.StringP("destination", "d", "", "directory prefix for archived paths")
	flags.String("cache-dir", "", "local archive cache directory")
	flags.Int64("cache-max-bytes", 0, "maximum local cache size in bytes (0 = unlimited)")
	flags.String("registry", "", "OCI repository used as a shared archive cache (e.g. ghcr.io/acme/builds)")
	flags.Bool("plain-http", false, "use plain HTTP for the registry")
	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, paths []string, f createFlags) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if f.push && cfg.Registry == "" {
		return errors.New("--push requires --registry")
	}

	local, err := a.localCache()
	if err != nil {
		return err
	}
	remote, err := a.remoteStore()
	if err != nil {
		return err
	}

	out, commit, err := openOutput(cmd, f.output)
	if err != nil {
		return err
	}
	defer func() {
		if commit != nil {
			_ = commit(false)
		}
	}()

	var pushed bytes.Buffer
	w := out
	if f.push {
		w = io.MultiWriter(out, &pushed)
	}

	res, err := a.produce(ctx, w, paths, local, remote)
	if err != nil {
		return err
	}
	if err := commit(true); err != nil {
		return err
	}
	commit = nil

	if f.manifest != "" {
		if err := writeFileAtomic(f.manifest, manifest.Encode(res.Manifest())); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	if f.push {
		key, keyErr := tarprint.ArchiveKey(res.Fingerprint, cfg.Destination, res.Compression)
		if keyErr != nil {
			return keyErr
		}
		if _, pushErr := remote.Push(ctx, key, pushed.Bytes(), res.Manifest()); pushErr != nil {
			return fmt.Errorf("push %s: %w", cfg.Registry, pushErr)
		}
		a.logger.Info("pushed archive", "registry", cfg.Registry, "key", key.Encoded())
	}

	// Keep stdout clean when it carries the archive.
	report := cmd.OutOrStdout()
	if f.output == "-" {
		report = cmd.ErrOrStderr()
	}
	_, err = fmt.Fprintln(report, res.Fingerprint.Encoded())
	return err
}

// produce writes the archive to w. Without any store the archive is built
// directly. Otherwise a first pass computes the fingerprint, and the archive
// is served from the local cache, then the registry, before being built.
func (a *app) produce(ctx context.Context, w io.Writer, paths []string, local *disk.Cache, remote *registry.Store) (*tarprint.Result, error) {
	cfg := a.cfg
	opts := a.createOptions()
	if local == nil && remote == nil {
		return a.create(ctx, w, cfg.Source, cfg.Destination, paths, opts...)
	}

	res, err := a.create(ctx, io.Discard, cfg.Source, cfg.Destination, paths, opts...)
	if err != nil {
		return nil, err
	}
	key, err := tarprint.ArchiveKey(res.Fingerprint, cfg.Destination, res.Compression)
	if err != nil {
		return nil, err
	}

	build := func(bw io.Writer) error {
		if remote != nil {
			if ok, fetchErr := fetchRemote(ctx, remote, key, bw); fetchErr != nil || ok {
				return fetchErr
			}
		}
		a.logger.Debug("building archive", "key", key.Encoded())
		built, createErr := a.create(ctx, bw, cfg.Source, cfg.Destination, paths, opts...)
		if createErr != nil {
			return createErr
		}
		if built.Fingerprint != res.Fingerprint {
			return fmt.Errorf("%w: fingerprint %s became %s", errSourceChanged, res.Fingerprint.Encoded(), built.Fingerprint.Encoded())
		}
		return nil
	}

	if local == nil {
		if err := build(w); err != nil {
			return nil, err
		}
		return res, nil
	}
	rc, err := cache.Lookup(ctx, local, key, build)
	if errors.Is(err, cache.ErrNotFound) {
		// The cache declined the archive, e.g. it exceeds cache_max_bytes.
		if err := build(w); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return nil, err
	}
	return res, nil
}

// fetchRemote copies the archive stored under key into w. It reports false
// when the registry does not have it.
func fetchRemote(ctx context.Context, remote *registry.Store, key digest.Digest, w io.Writer) (bool, error) {
	rc, err := remote.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return false, err
	}
	return true, nil
}

func (a *app) localCache() (*disk.Cache, error) {
	if a.cfg.CacheDir == "" {
		return nil, nil
	}
	return disk.New(a.cfg.CacheDir, disk.WithMaxBytes(a.cfg.CacheMaxBytes))
}

func (a *app) remoteStore() (*registry.Store, error) {
	if a.cfg.Registry == "" {
		return nil, nil
	}
	repo, err := registry.NewRepository(a.cfg.Registry, registry.WithPlainHTTP(a.cfg.PlainHTTP))
	if err != nil {
		return nil, err
	}
	return registry.New(repo, registry.WithLogger(a.logger)), nil
}

// openOutput returns the archive writer for path and a commit function. For
// files, data goes to a temporary file that commit(true) renames into place
// and commit(false) removes, so a failed run never leaves a partial archive.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(bool) error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func(bool) error { return nil }, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, nil, err
	}
	commit := func(ok bool) error {
		closeErr := tmp.Close()
		if !ok || closeErr != nil {
			_ = os.Remove(tmp.Name())
			return closeErr
		}
		if err := os.Chmod(tmp.Name(), 0o644); err != nil {
			_ = os.Remove(tmp.Name())
			return err
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			_ = os.Remove(tmp.Name())
			return err
		}
		return nil
	}
	return tmp, commit, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
