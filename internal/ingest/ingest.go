// Package ingest hashes files and appends them to an archive in one pass.
package ingest

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/meigma/tarprint/fingerprint"
	"github.com/meigma/tarprint/internal/archive"
	"github.com/meigma/tarprint/internal/platform"
	"github.com/meigma/tarprint/internal/printtype"
)

// Source identifies one file to ingest.
type Source struct {
	// Path is the absolute path opened for reading.
	Path string

	// Rel is the slash-separated path relative to the source root. It is the
	// path that participates in the file digest.
	Rel string

	// Dest is the slash-separated archive path.
	Dest string

	// Info is the metadata taken before the file is opened. Its size becomes
	// the header size and its permission bits decide the executable flag.
	Info fs.FileInfo

	// NoFollow refuses to open the path if it has become a symbolic link.
	NoFollow bool
}

// Ingester writes files through an archive writer and returns their entries.
// Exactly one file is open at a time.
type Ingester struct {
	aw     *archive.Writer
	h      fingerprint.Hasher
	strict bool
}

// New returns an Ingester writing to aw and hashing with h. When strict is
// set, files are re-checked after streaming and rejected if they changed.
func New(aw *archive.Writer, h fingerprint.Hasher, strict bool) *Ingester {
	return &Ingester{aw: aw, h: h, strict: strict}
}

// File streams src into the archive while computing its content digest.
//
// The content is read once: a tee feeds the digester while the archive
// writer consumes the same bytes. The returned entry carries the file digest
// combining src.Rel, the content digest and the executable bit.
func (in *Ingester) File(src Source) (printtype.Entry, error) {
	size := src.Info.Size()
	if size < 0 {
		return printtype.Entry{}, &printtype.IOError{Op: "read file", Path: src.Path, Err: fmt.Errorf("negative file size %d", size)}
	}
	executable := printtype.IsExecutable(src.Info.Mode())

	f, err := in.open(src)
	if err != nil {
		return printtype.Entry{}, err
	}
	defer f.Close()

	if in.strict {
		if err := validateFileInfo(f, src); err != nil {
			return printtype.Entry{}, err
		}
	}

	digester := in.h.Digester()
	cr := &countingReader{r: io.TeeReader(io.LimitReader(f, size), digester.Hash())}
	hdr := archive.Header{Name: src.Dest, Size: size, Executable: executable}
	_, appendErr := in.aw.Append(hdr, cr)
	if cr.err != nil {
		return printtype.Entry{}, &printtype.IOError{Op: "read file", Path: src.Path, Err: cr.err}
	}
	if appendErr != nil {
		return printtype.Entry{}, &printtype.IOError{Op: "archive file", Path: src.Path, Err: appendErr}
	}
	//nolint:gosec // size checked non-negative above
	if cr.n != uint64(size) {
		return printtype.Entry{}, &printtype.IOError{
			Op:   "read file",
			Path: src.Path,
			Err:  fmt.Errorf("%w: expected %d bytes, got %d", printtype.ErrFileChanged, size, cr.n),
		}
	}

	if in.strict {
		if err := checkFileUnchanged(f, src); err != nil {
			return printtype.Entry{}, err
		}
	}

	content := digester.Digest()
	return printtype.Entry{
		Path:          src.Dest,
		Source:        src.Rel,
		Size:          cr.n,
		Executable:    executable,
		ContentDigest: content,
		Digest:        in.h.FileDigest(src.Rel, content, executable),
	}, nil
}

func (in *Ingester) open(src Source) (*os.File, error) {
	var (
		f   *os.File
		err error
	)
	if src.NoFollow {
		f, err = platform.OpenNoFollow(src.Path)
	} else {
		f, err = os.Open(src.Path)
	}
	if err != nil {
		return nil, &printtype.IOError{Op: "open file", Path: src.Path, Err: err}
	}
	return f, nil
}

// countingReader counts bytes read and remembers the first read error, so a
// failing source can be told apart from a failing archive sink.
type countingReader struct {
	r   io.Reader
	n   uint64
	err error
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += uint64(n) //nolint:gosec // n is guaranteed non-negative by io.Reader contract
	}
	if err != nil && err != io.EOF && cr.err == nil {
		cr.err = err
	}
	return n, err
}
