// Package archive writes deterministic GNU tar streams.
//
// Headers carry only a name, a size and one of two modes. Timestamps,
// ownership and extended attributes are never recorded, so the same entries
// appended in the same order always produce the same bytes.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/meigma/tarprint/internal/printtype"
)

// epoch is the modification time written to every header.
var epoch = time.Unix(0, 0)

// ErrClosed is returned when appending to a finalized writer.
var ErrClosed = errors.New("archive: writer closed")

// Header describes one regular file entry.
type Header struct {
	Name       string
	Size       int64
	Executable bool
}

// Writer is a sequential tar sink. It only ever emits regular file entries,
// so there are no links to follow or preserve.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	out    *countingWriter
	comp   io.WriteCloser
	tw     *tar.Writer
	closed bool
}

// NewWriter returns a Writer that streams into w using compression c.
func NewWriter(w io.Writer, c printtype.Compression) (*Writer, error) {
	out := &countingWriter{w: w}
	comp, err := newCompressor(out, c)
	if err != nil {
		return nil, err
	}
	return &Writer{
		out:  out,
		comp: comp,
		tw:   tar.NewWriter(comp),
	}, nil
}

// Append writes hdr followed by exactly hdr.Size bytes from content.
// It returns the number of content bytes consumed.
func (w *Writer) Append(hdr Header, content io.Reader) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if hdr.Size < 0 {
		return 0, fmt.Errorf("archive: negative size for %s", hdr.Name)
	}
	mode := printtype.ModeRegular
	if hdr.Executable {
		mode = printtype.ModeExecutable
	}
	th := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     hdr.Name,
		Mode:     int64(mode),
		Size:     hdr.Size,
		ModTime:  epoch,
		Format:   tar.FormatGNU,
	}
	if err := w.tw.WriteHeader(th); err != nil {
		return 0, fmt.Errorf("archive: write header %s: %w", hdr.Name, err)
	}
	n, err := io.Copy(w.tw, io.LimitReader(content, hdr.Size))
	if err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the tar trailer and flushes the compressor. The result is a
// FinalizeError on failure. Close does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.tw.Close(); err != nil {
		return &printtype.FinalizeError{Err: err}
	}
	if err := w.comp.Close(); err != nil {
		return &printtype.FinalizeError{Err: err}
	}
	return nil
}

// Abort releases the compressor without finishing the stream. Nothing more
// is written to the underlying writer. Abort after Close is a no-op.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.out.w = io.Discard
	_ = w.comp.Close()
}

// Written returns the number of bytes emitted to the underlying writer.
func (w *Writer) Written() uint64 {
	return w.out.n
}
