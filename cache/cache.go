// Package cache defines storage for archives keyed by digest.
//
// Keys are normally produced by tarprint.ArchiveKey, which is a pure function
// of the archived files, their destination and the compression. Two archives
// stored under the same key are byte-identical, so either may be served for a
// lookup. Implementations live in the disk and registry packages.
package cache

import (
	"context"
	"errors"
	"io"

	"github.com/opencontainers/go-digest"
)

// ErrNotFound is returned when no archive is stored under a key.
var ErrNotFound = errors.New("cache: not found")

// Store provides archive storage keyed by digest.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Has reports whether an archive is stored under key.
	Has(ctx context.Context, key digest.Digest) (bool, error)

	// Get returns a reader for the archive stored under key, or ErrNotFound.
	// The caller must close the reader.
	Get(ctx context.Context, key digest.Digest) (io.ReadCloser, error)

	// Put stores the archive read from r under key. Storing a key that
	// is already present is a no-op.
	Put(ctx context.Context, key digest.Digest, r io.Reader) error
}

// Lookup returns the archive stored under key, calling build to produce and
// store it on a miss. build receives a writer for the archive bytes. A store
// that declines the archive, for example because it exceeds a size limit,
// yields ErrNotFound.
func Lookup(ctx context.Context, s Store, key digest.Digest, build func(w io.Writer) error) (io.ReadCloser, error) {
	rc, err := s.Get(ctx, key)
	if err == nil {
		return rc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(build(pw))
	}()
	if err := s.Put(ctx, key, pr); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	pr.Close()
	return s.Get(ctx, key)
}
