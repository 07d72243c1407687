// Package testutil provides helpers shared by tarprint tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// File describes a file to create in a test tree.
type File struct {
	Content string
	// Mode defaults to 0o644 when zero.
	Mode fs.FileMode
}

// WriteFiles creates files under dir, creating parent directories as needed.
// Modes are applied with Chmod so the process umask does not mask execute bits.
func WriteFiles(tb testing.TB, dir string, files map[string]File) {
	tb.Helper()
	for name, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		if err := os.WriteFile(path, []byte(f.Content), mode); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
		if err := os.Chmod(path, mode); err != nil {
			tb.Fatalf("chmod %s: %v", path, err)
		}
	}
}

// TarEntry is a decoded tar member.
type TarEntry struct {
	Name    string
	Mode    int64
	Content string
	Header  *tar.Header
}

// ReadTar decodes every member of an uncompressed tar stream, in order.
func ReadTar(tb testing.TB, data []byte) []TarEntry {
	tb.Helper()
	var entries []TarEntry
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries
		}
		if err != nil {
			tb.Fatalf("read tar header: %v", err)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			tb.Fatalf("read tar content for %s: %v", hdr.Name, err)
		}
		entries = append(entries, TarEntry{
			Name:    hdr.Name,
			Mode:    hdr.Mode,
			Content: string(content),
			Header:  hdr,
		})
	}
}
