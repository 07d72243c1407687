package printtype

// Compression identifies the compression applied to the archive stream.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Extension returns the conventional file suffix for an archive using c.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".tar.gz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// ParseCompression maps a name produced by String back to a Compression.
func ParseCompression(name string) (Compression, bool) {
	switch name {
	case "", "none":
		return CompressionNone, true
	case "gzip", "gz":
		return CompressionGzip, true
	case "zstd", "zst":
		return CompressionZstd, true
	default:
		return CompressionNone, false
	}
}
