// Package tarprint builds deterministic tar archives together with a
// content-addressed fingerprint of their contents.
//
// Given a source directory, a destination prefix and an ordered list of
// relative paths (files or directories), [Create] writes a GNU tar stream
// containing every regular file and returns a fingerprint that depends only
// on each file's relative path, its bytes and whether it is executable.
// Traversal order, timestamps, ownership and absolute locations never
// affect the fingerprint, which makes it suitable as a build cache key.
//
// # Quick Start
//
//	f, err := os.Create("context.tar")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	res, err := tarprint.Create(ctx, f, ".", "/app", []string{"src", "go.mod"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Fingerprint.Encoded())
//
// Use [Build] to receive the archive bytes and the fingerprint together, or
// [Fingerprint] when only the fingerprint is needed.
//
// # Determinism
//
// Every header records mode 0o666, or 0o777 when any execute bit is set on
// the source file, a zero modification time and no owner. Symbolic links
// found while walking a directory are skipped, never followed.
//
// # Cancellation
//
// The context is checked before each input path, before each directory is
// listed and before each directory entry. A cancelled run returns an error
// matching [ErrInterrupted] and never a partial result.
//
// # Caching
//
// Destination and compression change the archive bytes but not the
// fingerprint. [ArchiveKey] combines all three and keys the stores in the
// cache/disk and registry packages. The manifest package records the
// per-file digests so a fingerprint can be re-verified later, and
// [VerifyArchive] checks an archive against its manifest.
package tarprint
