// Package registry stores tarprint archives in OCI registries.
//
// Each archive is pushed as an OCI 1.1 artifact whose manifest is tagged with
// the encoded archive key, so a registry repository acts as a shared cache
// keyed by tarprint.ArchiveKey. The archive is the first layer; an optional second
// layer carries the FlatBuffers manifest describing the archived files.
//
// Store works against any oras.Target. Use NewRepository to reach a remote
// registry with docker credentials, or an in-memory target for tests.
package registry
