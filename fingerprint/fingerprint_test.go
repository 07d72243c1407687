package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestHasherZeroValueIsSHA256(t *testing.T) {
	var h Hasher
	assert.Equal(t, digest.SHA256, h.Algorithm())
	assert.Equal(t, sha256Hex("hello"), h.String("hello").Encoded())
}

func TestNewRejectsUnavailableAlgorithm(t *testing.T) {
	_, err := New(digest.Algorithm("md4000"))
	require.Error(t, err)

	h, err := New(digest.SHA512)
	require.NoError(t, err)
	assert.Len(t, h.String("").Encoded(), 128)
}

func TestReaderMatchesString(t *testing.T) {
	var h Hasher
	d, err := h.Reader(strings.NewReader("bye"))
	require.NoError(t, err)
	assert.Equal(t, h.String("bye"), d)
}

func TestExtendIsOrderSensitive(t *testing.T) {
	var h Hasher
	seed := h.String("")
	assert.Equal(t, sha256Hex(seed.Encoded()+"ab"), h.Extend(seed, "ab").Encoded())
	assert.NotEqual(t,
		h.Extend(h.Extend(seed, "a"), "b"),
		h.Extend(h.Extend(seed, "b"), "a"),
	)
}

func TestFileDigestContract(t *testing.T) {
	var h Hasher
	pathHex := sha256Hex("a/b.txt")
	contentHex := sha256Hex("hi")
	want := sha256Hex(sha256Hex(pathHex+contentHex) + "-x")

	got := h.FileDigest("a/b.txt", h.String("hi"), false)
	assert.Equal(t, want, got.Encoded())
	assert.Equal(t, digest.SHA256, got.Algorithm())
}

func TestFileDigestSensitivity(t *testing.T) {
	var h Hasher
	base := h.FileDigest("a/b.txt", h.String("hi"), false)

	tests := []struct {
		name string
		got  digest.Digest
	}{
		{"content", h.FileDigest("a/b.txt", h.String("ho"), false)},
		{"executable", h.FileDigest("a/b.txt", h.String("hi"), true)},
		{"path", h.FileDigest("a/c.txt", h.String("hi"), false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.got)
		})
	}
}

func TestFoldEmpty(t *testing.T) {
	var h Hasher
	assert.Equal(t, h.String(""), Fold(h, nil))
}

func TestFoldContract(t *testing.T) {
	var h Hasher
	b := h.FileDigest("a/b.txt", h.String("hi"), false)
	c := h.FileDigest("a/c.sh", h.String("bye"), true)

	lo, hi := b.Encoded(), c.Encoded()
	if hi < lo {
		lo, hi = hi, lo
	}
	want := sha256Hex(sha256Hex(sha256Hex("")+lo) + hi)

	assert.Equal(t, want, Fold(h, []digest.Digest{b, c}).Encoded())
	assert.Equal(t, want, Fold(h, []digest.Digest{c, b}).Encoded())
}

func TestAggregatorOrderIndependent(t *testing.T) {
	var h Hasher
	digests := make([]digest.Digest, 0, 64)
	for i := range 64 {
		digests = append(digests, h.FileDigest(strings.Repeat("d/", i%5)+string(rune('a'+i%26)), h.String(string(rune(i))), i%3 == 0))
	}

	forward := NewAggregator(h)
	for _, d := range digests {
		forward.Add(d)
	}

	shuffled := NewAggregator(h)
	r := rand.New(rand.NewPCG(1, 2))
	for _, i := range r.Perm(len(digests)) {
		shuffled.Add(digests[i])
	}

	assert.Equal(t, 64, forward.Len())
	assert.Equal(t, forward.Sum(), shuffled.Sum())
	assert.Equal(t, forward.Sum(), forward.Sum(), "Sum must not mutate state")
}

func TestAggregatorMembershipChangesSum(t *testing.T) {
	var h Hasher
	a := NewAggregator(h)
	a.Add(h.FileDigest("x", h.String("1"), false))
	before := a.Sum()

	a.Add(h.FileDigest("y", h.String("2"), false))
	assert.NotEqual(t, before, a.Sum())
}

func TestSortUsesHexOrder(t *testing.T) {
	ds := []digest.Digest{
		digest.NewDigestFromEncoded(digest.SHA256, strings.Repeat("f", 64)),
		digest.NewDigestFromEncoded(digest.SHA256, strings.Repeat("0", 64)),
		digest.NewDigestFromEncoded(digest.SHA256, strings.Repeat("a", 64)),
	}
	Sort(ds)
	assert.Equal(t, strings.Repeat("0", 64), ds[0].Encoded())
	assert.Equal(t, strings.Repeat("a", 64), ds[1].Encoded())
	assert.Equal(t, strings.Repeat("f", 64), ds[2].Encoded())
}
