package manifest

import (
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarprint/fingerprint"
	"github.com/meigma/tarprint/internal/printtype"
)

func testManifest(t *testing.T) *Manifest {
	t.Helper()
	var h fingerprint.Hasher
	entries := []printtype.Entry{
		{Path: "out/a/b.txt", Source: "a/b.txt", Size: 2, ContentDigest: h.String("hi")},
		{Path: "out/a/c.sh", Source: "a/c.sh", Size: 3, Executable: true, ContentDigest: h.String("bye")},
	}
	agg := fingerprint.NewAggregator(h)
	for i := range entries {
		entries[i].Digest = h.FileDigest(entries[i].Source, entries[i].ContentDigest, entries[i].Executable)
		agg.Add(entries[i].Digest)
	}
	return &Manifest{
		Algorithm:   digest.SHA256,
		Fingerprint: agg.Sum(),
		Compression: printtype.CompressionZstd,
		ArchiveSize: 3072,
		Entries:     entries,
	}
}

func TestEncodeDecode(t *testing.T) {
	m := testManifest(t)

	got, err := Decode(Encode(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)
	require.NoError(t, got.Verify())
}

func TestEncodeEmpty(t *testing.T) {
	var h fingerprint.Hasher
	m := &Manifest{Algorithm: digest.SHA256, Fingerprint: h.String(""), Entries: []printtype.Entry{}}

	got, err := Decode(Encode(m))
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
	require.NoError(t, got.Verify())
}

func TestVerifyDetectsTampering(t *testing.T) {
	var h fingerprint.Hasher
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"fingerprint", func(m *Manifest) { m.Fingerprint = h.String("other") }},
		{"executable bit", func(m *Manifest) { m.Entries[0].Executable = true }},
		{"source path", func(m *Manifest) { m.Entries[1].Source = "a/d.sh" }},
		{"content", func(m *Manifest) { m.Entries[0].ContentDigest = h.String("ho") }},
		{"dropped entry", func(m *Manifest) { m.Entries = m.Entries[:1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testManifest(t)
			tt.mutate(m)
			require.ErrorIs(t, m.Verify(), ErrFingerprintMismatch)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{1, 2}},
		{"random", []byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}
