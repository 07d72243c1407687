package tarprint

import "github.com/meigma/tarprint/internal/printtype"

// Errors re-exported from the internal type package.
var (
	// ErrInterrupted is returned when the context is cancelled. The returned
	// error also matches the context's own error.
	ErrInterrupted = printtype.ErrInterrupted

	// ErrTooManyFiles is returned when the archive would exceed CreateWithMaxFiles.
	ErrTooManyFiles = printtype.ErrTooManyFiles

	// ErrFileChanged is returned when a file is modified while it is archived.
	ErrFileChanged = printtype.ErrFileChanged

	// ErrSizeOverflow is returned when a byte count overflows.
	ErrSizeOverflow = printtype.ErrSizeOverflow
)

// IOError reports a failed filesystem operation on a single path.
type IOError = printtype.IOError

// PathError reports a path that cannot be expressed relative to the source root.
type PathError = printtype.PathError

// FinalizeError reports a failure completing the archive stream.
type FinalizeError = printtype.FinalizeError
