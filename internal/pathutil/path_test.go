package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarprint/internal/printtype"
)

func TestDestination(t *testing.T) {
	tests := []struct {
		name string
		dest string
		rel  string
		want string
	}{
		{"absolute root", "/foo", "a/b.txt", "foo/a/b.txt"},
		{"relative root", "foo", "a/b.txt", "foo/a/b.txt"},
		{"empty root", "", "a/b.txt", "a/b.txt"},
		{"filesystem root", "/", "a/b.txt", "a/b.txt"},
		{"nested root", "/opt/app/", "bin/run", "opt/app/bin/run"},
		{"dot segments", "foo/./bar", "x", "foo/bar/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Destination(tt.dest, tt.rel))
		})
	}
}

func TestNewResolverCanonicalizesRoot(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(target, link))

	r, err := NewResolver(link, "")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, r.Root())
}

func TestNewResolverMissingRoot(t *testing.T) {
	_, err := NewResolver(filepath.Join(t.TempDir(), "missing"), "")
	var ioErr *printtype.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.Path, "missing")
}

func TestClean(t *testing.T) {
	r, err := NewResolver(t.TempDir(), "")
	require.NoError(t, err)

	got, err := r.Clean("./a//b/")
	require.NoError(t, err)
	assert.Equal(t, "a/b", got)

	_, err = r.Clean("/etc/passwd")
	var pathErr *printtype.PathError
	require.ErrorAs(t, err, &pathErr)

	for _, in := range []string{"..", "../sibling.txt", "a/../../b"} {
		_, err = r.Clean(in)
		require.ErrorAs(t, err, &pathErr, in)
		assert.ErrorIs(t, err, errEscapesRoot, in)
	}

	got, err = r.Clean("a/../b")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

func TestContain(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "in.txt"), []byte("in"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "in.txt"), filepath.Join(root, "inner")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret"), filepath.Join(root, "outer")))

	r, err := NewResolver(root, "")
	require.NoError(t, err)

	require.NoError(t, r.Contain(r.Source("in.txt")))
	require.NoError(t, r.Contain(r.Source("inner")))

	err = r.Contain(r.Source("outer"))
	var pathErr *printtype.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.ErrorIs(t, err, errEscapesRoot)
}

func TestRelativize(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	r, err := NewResolver(root, "")
	require.NoError(t, err)

	rel, err := r.Relativize(filepath.Join(root, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", rel)

	_, err = r.Relativize(filepath.Join(root, "escape", "x"))
	var pathErr *printtype.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, r.Root(), pathErr.Root)
	require.ErrorIs(t, err, errEscapesRoot)
}
