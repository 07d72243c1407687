package archive

import (
	"io"

	"github.com/meigma/tarprint/internal/printtype"
)

// countingWriter wraps a writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n uint64
}

// Write implements io.Writer.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Writer contract
		if cw.n > ^uint64(0)-uint64(n) {
			return n, printtype.ErrSizeOverflow
		}
		cw.n += uint64(n) //nolint:gosec // overflow checked above
	}
	return n, err
}
