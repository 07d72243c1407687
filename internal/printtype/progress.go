package printtype

// ProgressEvent represents a progress update during archive creation.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the source path currently being processed, if applicable.
	Path string

	// BytesDone is the number of content bytes archived so far.
	BytesDone uint64

	// FilesDone is the number of files archived so far.
	FilesDone int

	// FilesTotal is the number of top-level inputs, or the final file count
	// once StageAggregating is reached.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages follow the lifecycle of a single Create call.
const (
	// StageResolving indicates the source root is being canonicalized.
	StageResolving ProgressStage = iota

	// StageWalking indicates a directory input is being enumerated.
	StageWalking

	// StageIngesting indicates a file is being hashed and archived.
	StageIngesting

	// StageAggregating indicates per-file digests are being folded.
	StageAggregating

	// StageDone indicates the archive is complete.
	StageDone
)

// String returns the human-readable name of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StageWalking:
		return "walking"
	case StageIngesting:
		return "ingesting"
	case StageAggregating:
		return "aggregating"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
type ProgressFunc func(ProgressEvent)
