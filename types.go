package tarprint

import "github.com/meigma/tarprint/internal/printtype"

// Entry describes one file written to an archive.
type Entry = printtype.Entry

// Compression identifies the compression applied to the archive stream.
type Compression = printtype.Compression

// Compression constants.
const (
	CompressionNone = printtype.CompressionNone
	CompressionGzip = printtype.CompressionGzip
	CompressionZstd = printtype.CompressionZstd
)

// ParseCompression maps "none", "gzip" or "zstd" to a Compression.
var ParseCompression = printtype.ParseCompression

// Header modes written to the archive.
const (
	ModeRegular    = printtype.ModeRegular
	ModeExecutable = printtype.ModeExecutable
)
