package printtype

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive creation.
var (
	// ErrInterrupted is returned when the caller cancels archive creation.
	ErrInterrupted = errors.New("tarprint: interrupted")

	// ErrTooManyFiles is returned when the configured file limit is exceeded.
	ErrTooManyFiles = errors.New("tarprint: too many files")

	// ErrFileChanged is returned when a file is modified while it is being archived.
	ErrFileChanged = errors.New("tarprint: file changed during archive creation")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("tarprint: size overflow")
)

// IOError reports a failed filesystem operation on a single path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("tarprint: unable to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PathError reports a path that cannot be expressed relative to the source root.
type PathError struct {
	Path string
	Root string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("tarprint: unable to relativize %s with respect to %s: %v", e.Path, e.Root, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// FinalizeError reports a failure completing the archive stream.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("tarprint: error writing tar archive: %v", e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// Interrupted wraps cause so it matches both ErrInterrupted and cause.
func Interrupted(cause error) error {
	if cause == nil {
		return ErrInterrupted
	}
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
