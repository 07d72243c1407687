package printtype

import (
	"io/fs"

	"github.com/opencontainers/go-digest"
)

// Archive header modes. Permission bits are collapsed to one of these two
// values so the archive does not depend on umask or ownership.
const (
	ModeRegular    fs.FileMode = 0o666
	ModeExecutable fs.FileMode = 0o777
)

// Entry describes one file written to an archive.
type Entry struct {
	// Path is the slash-separated destination path inside the archive.
	Path string

	// Source is the slash-separated path relative to the source root.
	// It is the path that participates in the file digest.
	Source string

	// Size is the number of content bytes.
	Size uint64

	// Executable reports whether any execute bit was set on the source file.
	Executable bool

	// ContentDigest is the digest of the file content alone.
	ContentDigest digest.Digest

	// Digest combines Source, ContentDigest and Executable.
	Digest digest.Digest
}

// Mode returns the header mode written for the entry.
func (e *Entry) Mode() fs.FileMode {
	if e.Executable {
		return ModeExecutable
	}
	return ModeRegular
}

// IsExecutable reports whether any of the owner, group or other execute
// bits are set in mode.
func IsExecutable(mode fs.FileMode) bool {
	return mode.Perm()&0o111 != 0
}
