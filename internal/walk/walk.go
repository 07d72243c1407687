// Package walk enumerates regular files beneath a directory.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/tarprint/internal/printtype"
)

// File is a regular file found beneath a directory input.
type File struct {
	// Path is the absolute path as discovered, before canonicalization.
	Path string

	// Info is the Lstat result for Path.
	Info fs.FileInfo
}

// WalkFunc is called once per regular file. Returning an error stops the walk.
type WalkFunc func(File) error

// Walker recursively visits directory descendants without following
// symbolic links. Symlinks, devices, sockets and pipes are skipped.
type Walker struct {
	readDir func(name string) ([]fs.DirEntry, error)
	skipped func(path string, mode fs.FileMode)
}

// Option configures a Walker.
type Option func(*Walker)

// WithReadDir replaces the directory listing function. The default is
// os.ReadDir, which returns entries sorted by name.
func WithReadDir(fn func(name string) ([]fs.DirEntry, error)) Option {
	return func(w *Walker) {
		w.readDir = fn
	}
}

// WithSkipped registers a callback invoked for every non-regular entry.
func WithSkipped(fn func(path string, mode fs.FileMode)) Option {
	return func(w *Walker) {
		w.skipped = fn
	}
}

// New returns a Walker.
func New(opts ...Option) *Walker {
	w := &Walker{readDir: os.ReadDir}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk visits every regular file beneath dir and calls fn for each one.
//
// The context is checked before the directory is listed and before every
// entry; once it is done Walk returns an error matching
// printtype.ErrInterrupted.
func (w *Walker) Walk(ctx context.Context, dir string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return printtype.Interrupted(err)
	}
	entries, err := w.readDir(dir)
	if err != nil {
		return &printtype.IOError{Op: "traverse directory", Path: dir, Err: err}
	}
	for _, d := range entries {
		if err := ctx.Err(); err != nil {
			return printtype.Interrupted(err)
		}
		path := filepath.Join(dir, d.Name())
		switch {
		case d.IsDir():
			if err := w.Walk(ctx, path, fn); err != nil {
				return err
			}
		case d.Type().IsRegular():
			info, err := os.Lstat(path)
			if err != nil {
				return &printtype.IOError{Op: "fetch filesystem metadata for", Path: path, Err: err}
			}
			// The entry may have been replaced since the directory was listed.
			if !info.Mode().IsRegular() {
				w.skip(path, info.Mode())
				continue
			}
			if err := fn(File{Path: path, Info: info}); err != nil {
				return err
			}
		default:
			w.skip(path, d.Type())
		}
	}
	return nil
}

func (w *Walker) skip(path string, mode fs.FileMode) {
	if w.skipped != nil {
		w.skipped(path, mode)
	}
}
