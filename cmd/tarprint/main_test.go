package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarprint"
	"github.com/meigma/tarprint/internal/testutil"
)

func cachedFiles(t *testing.T, cacheDir string) int {
	t.Helper()
	var n int
	err := filepath.WalkDir(filepath.Join(cacheDir, "sha256"), func(_ string, d os.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			n++
		}
		return err
	})
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return n
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeApp(t, &app{v: viper.New(), create: tarprint.Create}, args...)
}

func executeApp(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	cmd := newAppCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func sourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]testutil.File{
		"src/main.go":   {Content: "package main"},
		"src/run.sh":    {Content: "#!/bin/sh", Mode: 0o755},
		"src/lib/a.go":  {Content: "package lib"},
		"go.mod":        {Content: "module example"},
		"ignored/x.txt": {Content: "not archived"},
	})
	return dir
}

func TestCreateVerifyFingerprint(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	archivePath := filepath.Join(out, "app.tar")
	manifestPath := filepath.Join(out, "app.manifest")

	stdout, _, err := execute(t, "create", "-C", src, "-d", "/app", "-o", archivePath, "--manifest", manifestPath, "src", "go.mod")
	require.NoError(t, err)
	fp := strings.TrimSpace(stdout)
	assert.Len(t, fp, 64)

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	var names []string
	for _, e := range testutil.ReadTar(t, data) {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"app/src/main.go", "app/src/run.sh", "app/src/lib/a.go", "app/go.mod"}, names)

	stdout, _, err = execute(t, "fingerprint", "-C", src, "go.mod", "src")
	require.NoError(t, err)
	assert.Equal(t, fp, strings.TrimSpace(stdout))

	stdout, _, err = execute(t, "verify", manifestPath, "--archive", archivePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "verified")
	assert.Contains(t, stdout, fp)
	assert.Contains(t, stdout, "4 files")
}

func TestCreateToStdout(t *testing.T) {
	src := sourceTree(t)

	stdout, stderr, err := execute(t, "create", "-C", src, "go.mod")
	require.NoError(t, err)

	entries := testutil.ReadTar(t, []byte(stdout))
	require.Len(t, entries, 1)
	assert.Equal(t, "go.mod", entries[0].Name)
	assert.Len(t, strings.TrimSpace(stderr), 64)
}

func TestCreateWithCache(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	cacheDir := t.TempDir()

	first := filepath.Join(out, "first.tar.gz")
	second := filepath.Join(out, "second.tar.gz")
	_, _, err := execute(t, "create", "-C", src, "--compression", "gzip", "--cache-dir", cacheDir, "-o", first, "src")
	require.NoError(t, err)

	_, _, err = execute(t, "create", "-C", src, "--compression", "gzip", "--cache-dir", cacheDir, "-o", second, "src")
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []byte{0x1f, 0x8b}, a[:2])

	assert.Equal(t, 1, cachedFiles(t, cacheDir))
}

func TestCreateWithCacheSourceChanged(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	cacheDir := t.TempDir()
	archivePath := filepath.Join(out, "app.tar")

	var calls int
	a := &app{v: viper.New(), create: func(ctx context.Context, w io.Writer, sourceDir, destinationDir string, paths []string, opts ...tarprint.CreateOption) (*tarprint.Result, error) {
		calls++
		if calls == 2 {
			require.NoError(t, os.WriteFile(filepath.Join(src, "go.mod"), []byte("module changed"), 0o644))
		}
		return tarprint.Create(ctx, w, sourceDir, destinationDir, paths, opts...)
	}}

	_, _, err := executeApp(t, a, "create", "-C", src, "--cache-dir", cacheDir, "-o", archivePath, "go.mod")
	require.ErrorIs(t, err, errSourceChanged)
	assert.Equal(t, 2, calls)
	assert.Zero(t, cachedFiles(t, cacheDir))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A clean run afterwards caches the current content.
	_, _, err = execute(t, "create", "-C", src, "--cache-dir", cacheDir, "-o", archivePath, "--manifest", archivePath+".manifest", "go.mod")
	require.NoError(t, err)
	assert.Equal(t, 1, cachedFiles(t, cacheDir))
	_, _, err = execute(t, "verify", archivePath+".manifest", "--archive", archivePath)
	require.NoError(t, err)
}

func TestCreateConfigFile(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	cfgPath := filepath.Join(out, "tarprint.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("compression: zstd\ndestination: opt\n"), 0o644))

	archivePath := filepath.Join(out, "app.tar.zst")
	_, _, err := execute(t, "--config", cfgPath, "create", "-C", src, "-o", archivePath, "go.mod")
	require.NoError(t, err)

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, data[:4])
}

func TestCreateEnvironment(t *testing.T) {
	t.Setenv("TARPRINT_MAX_FILES", "1")
	src := sourceTree(t)

	_, _, err := execute(t, "create", "-C", src, "-o", filepath.Join(t.TempDir(), "x.tar"), "src")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many files")
}

func TestCreateFailureLeavesNoOutput(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	archivePath := filepath.Join(out, "app.tar")

	_, _, err := execute(t, "create", "-C", src, "-o", archivePath, "src", "missing")
	require.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateInvalidFlags(t *testing.T) {
	src := sourceTree(t)

	_, _, err := execute(t, "create", "-C", src, "--compression", "lz4", "go.mod")
	require.Error(t, err)

	_, _, err = execute(t, "create", "-C", src, "--push", "go.mod")
	require.Error(t, err)

	_, _, err = execute(t, "create", "-C", src, "--algorithm", "md5", "go.mod")
	require.Error(t, err)
}

func TestFingerprintKey(t *testing.T) {
	src := sourceTree(t)

	plain, _, err := execute(t, "fingerprint", "-C", src, "src")
	require.NoError(t, err)
	key, _, err := execute(t, "fingerprint", "-C", src, "--key", "-d", "app", "src")
	require.NoError(t, err)
	assert.NotEqual(t, plain, key)
	assert.Len(t, strings.TrimSpace(key), 64)
}

func TestFingerprintKeyUsesConfiguredDestination(t *testing.T) {
	src := sourceTree(t)

	flagKey, _, err := execute(t, "fingerprint", "-C", src, "--key", "-d", "app", "src")
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "tarprint.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("destination: app\n"), 0o644))
	fileKey, _, err := execute(t, "--config", cfgPath, "fingerprint", "-C", src, "--key", "src")
	require.NoError(t, err)
	assert.Equal(t, flagKey, fileKey)

	t.Setenv("TARPRINT_DESTINATION", "/app")
	envKey, _, err := execute(t, "fingerprint", "-C", src, "--key", "src")
	require.NoError(t, err)
	assert.Equal(t, flagKey, envKey)
}

func TestVerifyRejectsTamperedArchive(t *testing.T) {
	src := sourceTree(t)
	out := t.TempDir()
	archivePath := filepath.Join(out, "app.tar")
	manifestPath := filepath.Join(out, "app.manifest")

	_, _, err := execute(t, "create", "-C", src, "-o", archivePath, "--manifest", manifestPath, "go.mod")
	require.NoError(t, err)

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	i := bytes.Index(data, []byte("module example"))
	require.Positive(t, i)
	data[i] = 'M'
	require.NoError(t, os.WriteFile(archivePath, data, 0o644))

	_, _, err = execute(t, "verify", manifestPath, "--archive", archivePath)
	require.Error(t, err)

	// The manifest alone is still consistent.
	_, _, err = execute(t, "verify", manifestPath)
	require.NoError(t, err)
}
