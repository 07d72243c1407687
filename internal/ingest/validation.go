package ingest

import (
	"fmt"
	"os"

	"github.com/meigma/tarprint/internal/printtype"
)

// validateFileInfo checks that the opened file is the one that was listed.
func validateFileInfo(f *os.File, src Source) error {
	finfo, err := f.Stat()
	if err != nil {
		return &printtype.IOError{Op: "fetch filesystem metadata for", Path: src.Path, Err: err}
	}
	if !finfo.Mode().IsRegular() {
		return &printtype.IOError{Op: "read file", Path: src.Path, Err: fmt.Errorf("%w: not a regular file", printtype.ErrFileChanged)}
	}
	if !os.SameFile(src.Info, finfo) {
		return &printtype.IOError{Op: "read file", Path: src.Path, Err: printtype.ErrFileChanged}
	}
	return nil
}

// checkFileUnchanged compares size, mtime and permissions after streaming.
func checkFileUnchanged(f *os.File, src Source) error {
	after, err := f.Stat()
	if err != nil {
		return &printtype.IOError{Op: "fetch filesystem metadata for", Path: src.Path, Err: err}
	}
	before := src.Info
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) || after.Mode().Perm() != before.Mode().Perm() {
		return &printtype.IOError{Op: "read file", Path: src.Path, Err: printtype.ErrFileChanged}
	}
	return nil
}
