package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/tarprint/internal/printtype"
)

// nopWriteCloser adapts an io.Writer for the uncompressed path.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newCompressor wraps w with the encoder for c. Encoders are configured so
// identical input always yields identical output bytes.
func newCompressor(w io.Writer, c printtype.Compression) (io.WriteCloser, error) {
	switch c {
	case printtype.CompressionNone:
		return nopWriteCloser{w}, nil
	case printtype.CompressionGzip:
		// The gzip header carries no name, comment or modification time.
		gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("create gzip encoder: %w", err)
		}
		return gz, nil
	case printtype.CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unsupported compression %d", c)
	}
}

// NewDecompressor returns a reader yielding the tar stream inside r.
// The returned closer releases decoder resources; it does not close r.
func NewDecompressor(r io.Reader, c printtype.Compression) (io.ReadCloser, error) {
	switch c {
	case printtype.CompressionNone:
		return io.NopCloser(r), nil
	case printtype.CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip decoder: %w", err)
		}
		return gz, nil
	case printtype.CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %d", c)
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect reports the compression of an archive from its leading bytes.
// Anything that is not gzip or zstd is treated as a plain tar stream.
func Detect(head []byte) printtype.Compression {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return printtype.CompressionZstd
	case bytes.HasPrefix(head, gzipMagic):
		return printtype.CompressionGzip
	default:
		return printtype.CompressionNone
	}
}
