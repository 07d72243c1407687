// Package fingerprint computes order-independent digests over sets of files.
//
// A file digest combines a file's relative path, its content digest and its
// executable bit:
//
//	extend(extend(hashStr(path), hashBytes(content)), "+x" | "-x")
//
// where extend(d, s) is the digest of d's hex encoding followed by s. The
// fingerprint of a file set sorts every file digest and folds them into an
// accumulator seeded with hashStr(""):
//
//	fp := hashStr("")
//	for _, d := range sorted(digests) {
//	    fp = extend(fp, d)
//	}
//
// The combination scheme is a compatibility contract. Changing the seed, the
// sort order or the fold direction changes every fingerprint ever produced.
package fingerprint
