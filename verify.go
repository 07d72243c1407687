package tarprint

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/meigma/tarprint/fingerprint"
	"github.com/meigma/tarprint/internal/archive"
	"github.com/meigma/tarprint/internal/printtype"
	"github.com/meigma/tarprint/manifest"
)

// ErrArchiveMismatch is returned when an archive does not match its manifest.
var ErrArchiveMismatch = errors.New("tarprint: archive does not match manifest")

// ErrFingerprintMismatch is returned when a manifest's fingerprint is not the
// fold of its entry digests.
var ErrFingerprintMismatch = manifest.ErrFingerprintMismatch

// VerifyArchive checks that the archive read from r holds exactly the files m
// lists, in order, with the recorded sizes, modes and content digests, and
// that r yields exactly m.ArchiveSize bytes. The manifest itself is verified
// first.
func VerifyArchive(ctx context.Context, r io.Reader, m *manifest.Manifest) error {
	if err := m.Verify(); err != nil {
		return err
	}
	h, err := fingerprint.New(m.Algorithm)
	if err != nil {
		return err
	}

	counted := &byteCounter{r: r}
	rc, err := archive.NewDecompressor(counted, m.Compression)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveMismatch, err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return printtype.Interrupted(err)
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			if i != len(m.Entries) {
				return fmt.Errorf("%w: archive has %d files, manifest lists %d", ErrArchiveMismatch, i, len(m.Entries))
			}
			break
		}
		if err != nil {
			return fmt.Errorf("%w: read entry %d: %w", ErrArchiveMismatch, i, err)
		}
		if i >= len(m.Entries) {
			return fmt.Errorf("%w: unexpected file %s", ErrArchiveMismatch, hdr.Name)
		}
		if err := verifyEntry(h, hdr, tr, &m.Entries[i]); err != nil {
			return err
		}
	}

	// Drain trailing padding so the byte count covers the whole stream.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveMismatch, err)
	}
	if _, err := io.Copy(io.Discard, counted); err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if counted.n != m.ArchiveSize {
		return fmt.Errorf("%w: archive is %d bytes, manifest records %d", ErrArchiveMismatch, counted.n, m.ArchiveSize)
	}
	return nil
}

func verifyEntry(h fingerprint.Hasher, hdr *tar.Header, content io.Reader, e *Entry) error {
	switch {
	case hdr.Name != e.Path:
		return fmt.Errorf("%w: found %s, expected %s", ErrArchiveMismatch, hdr.Name, e.Path)
	case hdr.Typeflag != tar.TypeReg:
		return fmt.Errorf("%w: %s is not a regular file", ErrArchiveMismatch, hdr.Name)
	case hdr.Size < 0 || uint64(hdr.Size) != e.Size:
		return fmt.Errorf("%w: %s is %d bytes, expected %d", ErrArchiveMismatch, hdr.Name, hdr.Size, e.Size)
	case fs.FileMode(hdr.Mode) != e.Mode(): //nolint:gosec // tar modes fit in 32 bits
		return fmt.Errorf("%w: %s has mode %o, expected %o", ErrArchiveMismatch, hdr.Name, hdr.Mode, e.Mode())
	}
	d, err := h.Reader(content)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrArchiveMismatch, hdr.Name, err)
	}
	if d != e.ContentDigest {
		return fmt.Errorf("%w: %s content digest %s, expected %s", ErrArchiveMismatch, hdr.Name, d.Encoded(), e.ContentDigest.Encoded())
	}
	return nil
}

type byteCounter struct {
	r io.Reader
	n uint64
}

func (c *byteCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n) //nolint:gosec // n is never negative
	return n, err
}
