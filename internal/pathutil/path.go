// Package pathutil resolves archive inputs against a canonical source root.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meigma/tarprint/internal/printtype"
)

// errEscapesRoot is the cause attached to a PathError for paths outside the root.
var errEscapesRoot = errors.New("path is outside the source root")

// Resolver maps relative input specs to source and destination paths.
type Resolver struct {
	root string
	dest string
}

// NewResolver canonicalizes sourceDir and returns a Resolver for it.
// Canonicalization resolves the directory to an absolute path with every
// symbolic link evaluated.
func NewResolver(sourceDir, destinationDir string) (*Resolver, error) {
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, &printtype.IOError{Op: "canonicalize path", Path: sourceDir, Err: err}
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, &printtype.IOError{Op: "canonicalize path", Path: sourceDir, Err: err}
	}
	return &Resolver{root: root, dest: destinationDir}, nil
}

// Root returns the canonical source root.
func (r *Resolver) Root() string {
	return r.root
}

// Clean validates input and returns its cleaned, slash-separated form.
// Inputs must be relative to the source root and must not leave it.
func (r *Resolver) Clean(input string) (string, error) {
	if filepath.IsAbs(input) {
		return "", &printtype.PathError{Path: input, Root: r.root, Err: errors.New("input path must be relative")}
	}
	rel := filepath.Clean(input)
	if escapes(rel) {
		return "", &printtype.PathError{Path: input, Root: r.root, Err: errEscapesRoot}
	}
	return filepath.ToSlash(rel), nil
}

// Source returns the absolute source path for a relative path.
func (r *Resolver) Source(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// Destination returns the archive path for a relative path. Exactly one
// leading separator is stripped so archive paths are always relative.
func (r *Resolver) Destination(rel string) string {
	return Destination(r.dest, rel)
}

// Relativize canonicalizes path and expresses it relative to the root.
// It fails with a PathError when the resolved path is outside the root.
func (r *Resolver) Relativize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", &printtype.IOError{Op: "canonicalize path", Path: path, Err: err}
	}
	rel, err := filepath.Rel(r.root, resolved)
	if err != nil {
		return "", &printtype.PathError{Path: path, Root: r.root, Err: err}
	}
	if escapes(rel) {
		return "", &printtype.PathError{Path: path, Root: r.root, Err: fmt.Errorf("%w: %s", errEscapesRoot, resolved)}
	}
	return filepath.ToSlash(rel), nil
}

// Contain fails with a PathError when path, with every symbolic link
// evaluated, is outside the root.
func (r *Resolver) Contain(path string) error {
	_, err := r.Relativize(path)
	return err
}

// escapes reports whether the cleaned relative path rel leaves its base.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Destination joins destinationDir and rel into a slash-separated archive
// path and strips exactly one leading separator.
//
//   - Destination("/foo", "a/b") → "foo/a/b"
//   - Destination("foo", "a/b")  → "foo/a/b"
//   - Destination("", "a/b")     → "a/b"
//   - Destination("/", "a/b")    → "a/b"
func Destination(destinationDir, rel string) string {
	p := filepath.ToSlash(filepath.Join(filepath.FromSlash(destinationDir), filepath.FromSlash(rel)))
	return strings.TrimPrefix(p, "/")
}
