// Package manifest encodes a sidecar description of a tarprint archive.
//
// A manifest lists every archived file with its per-file digest and records
// the fingerprint of the whole set. Because the fingerprint is a pure
// function of the per-file digests, a decoded manifest can be checked for
// internal consistency with Verify without access to the archive itself.
//
// Manifests are FlatBuffers-encoded. Entries are stored in archive order.
package manifest

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/tarprint/fingerprint"
	"github.com/meigma/tarprint/internal/fb"
	"github.com/meigma/tarprint/internal/printtype"
)

// Version is the manifest format version written by Encode.
const Version = 1

var (
	// ErrInvalid is returned when manifest bytes cannot be decoded.
	ErrInvalid = errors.New("manifest: invalid manifest")

	// ErrFingerprintMismatch is returned when the recorded fingerprint does
	// not match the fold of the recorded file digests.
	ErrFingerprintMismatch = errors.New("manifest: fingerprint mismatch")
)

// Manifest describes one archive.
type Manifest struct {
	Algorithm   digest.Algorithm
	Fingerprint digest.Digest
	Compression printtype.Compression
	ArchiveSize uint64
	Entries     []printtype.Entry
}

// Encode serializes m to FlatBuffers.
func Encode(m *Manifest) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	offsets := make([]flatbuffers.UOffsetT, len(m.Entries))
	for i := len(m.Entries) - 1; i >= 0; i-- {
		e := m.Entries[i]
		path := builder.CreateString(e.Path)
		source := builder.CreateString(e.Source)
		content := builder.CreateString(e.ContentDigest.Encoded())
		dgst := builder.CreateString(e.Digest.Encoded())

		fb.EntryStart(builder)
		fb.EntryAddPath(builder, path)
		fb.EntryAddSource(builder, source)
		fb.EntryAddSize(builder, e.Size)
		fb.EntryAddExecutable(builder, e.Executable)
		fb.EntryAddContentDigest(builder, content)
		fb.EntryAddDigest(builder, dgst)
		offsets[i] = fb.EntryEnd(builder)
	}

	fb.ManifestStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entries := builder.EndVector(len(offsets))

	alg := builder.CreateString(string(m.Algorithm))
	fp := builder.CreateString(m.Fingerprint.Encoded())

	fb.ManifestStart(builder)
	fb.ManifestAddVersion(builder, Version)
	fb.ManifestAddAlgorithm(builder, alg)
	fb.ManifestAddFingerprint(builder, fp)
	fb.ManifestAddCompression(builder, byte(m.Compression))
	fb.ManifestAddArchiveSize(builder, m.ArchiveSize)
	fb.ManifestAddEntries(builder, entries)
	builder.Finish(fb.ManifestEnd(builder))
	return builder.FinishedBytes()
}

// Decode parses a FlatBuffers-encoded manifest. Digests are validated
// against the recorded algorithm.
func Decode(data []byte) (m *Manifest, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalid, len(data))
	}

	root := fb.GetRootAsManifest(data, 0)
	if v := root.Version(); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, v)
	}

	alg := digest.Algorithm(root.Algorithm())
	if !alg.Available() {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalid, alg)
	}
	fp, err := parseDigest(alg, root.Fingerprint())
	if err != nil {
		return nil, err
	}

	m = &Manifest{
		Algorithm:   alg,
		Fingerprint: fp,
		Compression: printtype.Compression(root.Compression()),
		ArchiveSize: root.ArchiveSize(),
		Entries:     make([]printtype.Entry, 0, root.EntriesLength()),
	}

	var e fb.Entry
	for i := range root.EntriesLength() {
		if !root.Entries(&e, i) {
			return nil, fmt.Errorf("%w: missing entry %d", ErrInvalid, i)
		}
		content, err := parseDigest(alg, e.ContentDigest())
		if err != nil {
			return nil, err
		}
		dgst, err := parseDigest(alg, e.Digest())
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, printtype.Entry{
			Path:          string(e.Path()),
			Source:        string(e.Source()),
			Size:          e.Size(),
			Executable:    e.Executable(),
			ContentDigest: content,
			Digest:        dgst,
		})
	}
	return m, nil
}

// Verify checks that every entry digest matches its path, content digest and
// executable bit, and that the fingerprint is the fold of the entry digests.
func (m *Manifest) Verify() error {
	h, err := fingerprint.New(m.Algorithm)
	if err != nil {
		return err
	}
	agg := fingerprint.NewAggregator(h)
	for _, e := range m.Entries {
		if want := h.FileDigest(e.Source, e.ContentDigest, e.Executable); want != e.Digest {
			return fmt.Errorf("%w: entry %s", ErrFingerprintMismatch, e.Path)
		}
		agg.Add(e.Digest)
	}
	if got := agg.Sum(); got != m.Fingerprint {
		return fmt.Errorf("%w: recorded %s, computed %s", ErrFingerprintMismatch, m.Fingerprint.Encoded(), got.Encoded())
	}
	return nil
}

func parseDigest(alg digest.Algorithm, encoded []byte) (digest.Digest, error) {
	d := digest.NewDigestFromEncoded(alg, string(encoded))
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return d, nil
}
