package tarprint

import (
	"io/fs"
	"log/slog"

	"github.com/opencontainers/go-digest"
)

// ChangeDetection controls how strictly file changes are detected during creation.
type ChangeDetection uint8

const (
	ChangeDetectionNone ChangeDetection = iota
	ChangeDetectionStrict
)

// createConfig holds configuration for archive creation.
type createConfig struct {
	compression     Compression
	algorithm       digest.Algorithm
	changeDetection ChangeDetection
	maxFiles        int
	logger          *slog.Logger
	progress        ProgressFunc

	// readDir overrides directory listing order in tests.
	readDir func(name string) ([]fs.DirEntry, error)
}

// CreateOption configures archive creation.
type CreateOption func(*createConfig)

// CreateWithCompression compresses the archive stream. The fingerprint does
// not depend on compression.
func CreateWithCompression(c Compression) CreateOption {
	return func(cfg *createConfig) {
		cfg.compression = c
	}
}

// CreateWithAlgorithm selects the digest algorithm for the fingerprint.
// The default is SHA-256. Changing it changes every fingerprint.
func CreateWithAlgorithm(alg digest.Algorithm) CreateOption {
	return func(cfg *createConfig) {
		cfg.algorithm = alg
	}
}

// CreateWithChangeDetection controls whether the writer verifies files did not change
// during archive creation. The zero value only checks that the number of bytes
// read matches the size recorded in the header; ChangeDetectionStrict also
// compares identity, mtime and permissions before and after.
func CreateWithChangeDetection(cd ChangeDetection) CreateOption {
	return func(cfg *createConfig) {
		cfg.changeDetection = cd
	}
}

// CreateWithMaxFiles limits the number of files included in the archive.
// Zero or a negative value means no limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// CreateWithLogger sets the logger for archive creation.
// If not set, logging is disabled.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}

// CreateWithProgress sets a callback that receives progress events.
func CreateWithProgress(fn ProgressFunc) CreateOption {
	return func(cfg *createConfig) {
		cfg.progress = fn
	}
}
