package fingerprint

import (
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Aggregator collects file digests in discovery order and produces a
// fingerprint that does not depend on that order.
//
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	h       Hasher
	digests []digest.Digest
}

// NewAggregator returns an empty Aggregator that folds with h.
func NewAggregator(h Hasher) *Aggregator {
	return &Aggregator{h: h}
}

// Add records a file digest.
func (a *Aggregator) Add(d digest.Digest) {
	a.digests = append(a.digests, d)
}

// Len returns the number of recorded digests.
func (a *Aggregator) Len() int {
	return len(a.digests)
}

// Sum returns the fingerprint of every digest added so far. It does not
// reorder the recorded digests, so Sum may be called repeatedly.
func (a *Aggregator) Sum() digest.Digest {
	return Fold(a.h, a.digests)
}

// Fold sorts a copy of digests by their hex encoding and folds them into an
// accumulator seeded with the digest of the empty string.
func Fold(h Hasher, digests []digest.Digest) digest.Digest {
	sorted := slices.Clone(digests)
	Sort(sorted)
	acc := h.String("")
	for _, d := range sorted {
		acc = h.Combine(acc, d)
	}
	return acc
}

// Sort orders digests by their hex encoding, which matches ordering by the
// raw digest bytes.
func Sort(digests []digest.Digest) {
	slices.SortFunc(digests, func(a, b digest.Digest) int {
		return strings.Compare(a.Encoded(), b.Encoded())
	})
}
