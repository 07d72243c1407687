package tarprint

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyArchive(t *testing.T) {
	t.Parallel()

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()
			dir := scenarioTree(t)
			a := build(t, dir, "/opt", []string{"a"}, CreateWithCompression(c))

			require.NoError(t, VerifyArchive(context.Background(), bytes.NewReader(a.Data), a.Manifest()))
		})
	}
}

func TestVerifyArchiveTamperedContent(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	a := build(t, dir, "", []string{"a"})

	data := bytes.Clone(a.Data)
	i := bytes.Index(data, []byte("bye"))
	require.Positive(t, i)
	data[i] = 'B'

	err := VerifyArchive(context.Background(), bytes.NewReader(data), a.Manifest())
	require.ErrorIs(t, err, ErrArchiveMismatch)
}

func TestVerifyArchiveWrongPath(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	a := build(t, dir, "", []string{"a"})

	m := a.Manifest()
	m.Entries = append([]Entry(nil), m.Entries...)
	m.Entries[0].Path = "elsewhere/b.txt"

	err := VerifyArchive(context.Background(), bytes.NewReader(a.Data), m)
	require.ErrorIs(t, err, ErrArchiveMismatch)
}

func TestVerifyArchiveMissingEntry(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	full := build(t, dir, "", []string{"a"})
	partial := build(t, dir, "", []string{"a/b.txt"})

	err := VerifyArchive(context.Background(), bytes.NewReader(partial.Data), full.Manifest())
	require.ErrorIs(t, err, ErrArchiveMismatch)
}

func TestVerifyArchiveTrailingBytes(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	a := build(t, dir, "", []string{"a"})

	data := append(bytes.Clone(a.Data), make([]byte, 512)...)
	err := VerifyArchive(context.Background(), bytes.NewReader(data), a.Manifest())
	require.ErrorIs(t, err, ErrArchiveMismatch)
}

func TestVerifyArchiveInconsistentManifest(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	a := build(t, dir, "", []string{"a"})

	m := a.Manifest()
	m.Entries = append([]Entry(nil), m.Entries...)
	m.Entries[1].Executable = false

	err := VerifyArchive(context.Background(), bytes.NewReader(a.Data), m)
	require.ErrorIs(t, err, ErrFingerprintMismatch)
	assert.NotErrorIs(t, err, ErrArchiveMismatch)
}

func TestVerifyArchiveCanceled(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	a := build(t, dir, "", []string{"a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := VerifyArchive(ctx, bytes.NewReader(a.Data), a.Manifest())
	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.Canceled)
}
