package registry

import "github.com/meigma/tarprint/internal/printtype"

// Media types for tarprint artifacts in OCI registries.
const (
	// ArtifactType identifies tarprint archives as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meigma.tarprint.v1"

	// MediaTypeArchive is the media type for an uncompressed archive layer.
	MediaTypeArchive = "application/vnd.meigma.tarprint.archive.v1.tar"

	// MediaTypeArchiveGzip is the media type for a gzip-compressed archive layer.
	MediaTypeArchiveGzip = MediaTypeArchive + "+gzip"

	// MediaTypeArchiveZstd is the media type for a zstd-compressed archive layer.
	MediaTypeArchiveZstd = MediaTypeArchive + "+zstd"

	// MediaTypeManifest is the media type for the FlatBuffers manifest layer.
	MediaTypeManifest = "application/vnd.meigma.tarprint.manifest.v1+flatbuffers"

	// AnnotationKey records the full archive key, algorithm included.
	AnnotationKey = "dev.meigma.tarprint.key"

	// AnnotationFingerprint records the fingerprint of the archived files when
	// a manifest layer is present.
	AnnotationFingerprint = "dev.meigma.tarprint.fingerprint"
)

func archiveMediaType(c printtype.Compression) string {
	switch c {
	case printtype.CompressionGzip:
		return MediaTypeArchiveGzip
	case printtype.CompressionZstd:
		return MediaTypeArchiveZstd
	default:
		return MediaTypeArchive
	}
}

func isArchiveMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypeArchive, MediaTypeArchiveGzip, MediaTypeArchiveZstd:
		return true
	default:
		return false
	}
}
