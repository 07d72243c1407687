package fingerprint

import (
	_ "crypto/sha256" // register digest.SHA256
	_ "crypto/sha512" // register digest.SHA384 and digest.SHA512
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Suffixes appended to a file digest to record its executable bit.
const (
	ExecutableSuffix    = "+x"
	NotExecutableSuffix = "-x"
)

// Hasher is the hash engine used to build file digests and fingerprints.
// The zero value uses SHA-256.
type Hasher struct {
	alg digest.Algorithm
}

// New returns a Hasher using alg. It fails if alg is not available in the
// running binary.
func New(alg digest.Algorithm) (Hasher, error) {
	if !alg.Available() {
		return Hasher{}, fmt.Errorf("fingerprint: digest algorithm %q unavailable", alg)
	}
	return Hasher{alg: alg}, nil
}

// Algorithm returns the digest algorithm in use.
func (h Hasher) Algorithm() digest.Algorithm {
	if h.alg == "" {
		return digest.SHA256
	}
	return h.alg
}

// String returns the digest of s.
func (h Hasher) String(s string) digest.Digest {
	return h.Algorithm().FromString(s)
}

// Reader returns the digest of everything read from r.
func (h Hasher) Reader(r io.Reader) (digest.Digest, error) {
	return h.Algorithm().FromReader(r)
}

// Digester returns a streaming digester for content that is consumed elsewhere.
func (h Hasher) Digester() digest.Digester {
	return h.Algorithm().Digester()
}

// Extend folds suffix into d. The operation is order-sensitive:
// Extend(Extend(d, a), b) differs from Extend(Extend(d, b), a).
func (h Hasher) Extend(d digest.Digest, suffix string) digest.Digest {
	return h.String(d.Encoded() + suffix)
}

// Combine folds next into d by its hex encoding.
func (h Hasher) Combine(d, next digest.Digest) digest.Digest {
	return h.Extend(d, next.Encoded())
}

// FileDigest returns the digest identifying one file by its slash-separated
// relative path, content digest and executable bit.
func (h Hasher) FileDigest(path string, content digest.Digest, executable bool) digest.Digest {
	suffix := NotExecutableSuffix
	if executable {
		suffix = ExecutableSuffix
	}
	return h.Extend(h.Combine(h.String(path), content), suffix)
}
