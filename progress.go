package tarprint

import "github.com/meigma/tarprint/internal/printtype"

// Re-export progress types.
type (
	// ProgressEvent represents a progress update during archive creation.
	ProgressEvent = printtype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = printtype.ProgressStage

	// ProgressFunc receives progress updates. It is called synchronously
	// from the goroutine running Create.
	ProgressFunc = printtype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageResolving indicates the source root is being canonicalized.
	StageResolving = printtype.StageResolving

	// StageWalking indicates a directory input is being enumerated.
	StageWalking = printtype.StageWalking

	// StageIngesting indicates a file is being hashed and archived.
	StageIngesting = printtype.StageIngesting

	// StageAggregating indicates per-file digests are being folded.
	StageAggregating = printtype.StageAggregating

	// StageDone indicates the archive is complete.
	StageDone = printtype.StageDone
)
