package registry

import (
	"errors"
	"fmt"

	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/tarprint/cache"
)

var (
	// ErrInvalidReference is returned when a repository reference is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrNotArtifact is returned when a tag resolves to something other than
	// a tarprint artifact.
	ErrNotArtifact = errors.New("registry: not a tarprint artifact")

	// ErrMissingLayer is returned when an artifact lacks a required layer.
	ErrMissingLayer = errors.New("registry: missing layer")

	// ErrKeyMismatch is returned when the artifact behind a tag is annotated
	// with a different key than the one requested.
	ErrKeyMismatch = errors.New("registry: key mismatch")

	// ErrFingerprintMismatch is returned when a manifest layer records a
	// different fingerprint than its artifact annotation.
	ErrFingerprintMismatch = errors.New("registry: fingerprint mismatch")
)

// mapError translates ORAS errors into cache errors where one applies.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %w", cache.ErrNotFound, err)
	}
	return err
}
