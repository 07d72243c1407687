package tarprint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/tarprint/fingerprint"
	"github.com/meigma/tarprint/internal/archive"
	"github.com/meigma/tarprint/internal/ingest"
	"github.com/meigma/tarprint/internal/pathutil"
	"github.com/meigma/tarprint/internal/platform"
	"github.com/meigma/tarprint/internal/printtype"
	"github.com/meigma/tarprint/internal/walk"
	"github.com/meigma/tarprint/manifest"
)

// Result describes a completed archive.
type Result struct {
	// Fingerprint is the order-independent digest of every archived file.
	// Its Encoded form is the fingerprint string.
	Fingerprint digest.Digest

	// Entries lists archived files in the order they were written.
	Entries []Entry

	// Compression is the compression applied to the archive stream.
	Compression Compression

	// Size is the number of bytes written to the archive stream.
	Size uint64
}

// Manifest returns a manifest describing the result.
func (r *Result) Manifest() *manifest.Manifest {
	return &manifest.Manifest{
		Algorithm:   r.Fingerprint.Algorithm(),
		Fingerprint: r.Fingerprint,
		Compression: r.Compression,
		ArchiveSize: r.Size,
		Entries:     r.Entries,
	}
}

// Archive holds a finished archive in memory together with its result.
type Archive struct {
	Result

	// Data is the complete archive stream.
	Data []byte
}

// Create writes an archive of paths to w and returns its fingerprint.
//
// Each path is relative to sourceDir and names a file or directory.
// Directories are walked recursively; only regular files are archived and
// symbolic links beneath them are skipped. Each file is stored at
// destinationDir joined with its path relative to the canonical sourceDir,
// with a leading separator removed so every archive path is relative.
//
// On error the bytes already written to w must be discarded; Create never
// reports success for a partial archive. Files are processed one at a time
// and exactly one file is open at any moment.
func Create(ctx context.Context, w io.Writer, sourceDir, destinationDir string, paths []string, opts ...CreateOption) (*Result, error) {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &creator{cfg: cfg, logger: cfg.logger}
	res, err := c.run(ctx, w, sourceDir, destinationDir, paths)
	if err != nil {
		// Cancellation takes priority over whatever failure it caused.
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrInterrupted) {
			return nil, printtype.Interrupted(ctxErr)
		}
		c.log().Debug("archive creation failed", "error", err)
		return nil, err
	}
	return res, nil
}

// Build is like Create but buffers the archive and returns it with the
// result. Nothing is returned unless the whole archive was produced.
func Build(ctx context.Context, sourceDir, destinationDir string, paths []string, opts ...CreateOption) (*Archive, error) {
	var buf bytes.Buffer
	res, err := Create(ctx, &buf, sourceDir, destinationDir, paths, opts...)
	if err != nil {
		return nil, err
	}
	return &Archive{Result: *res, Data: buf.Bytes()}, nil
}

// Fingerprint computes the fingerprint of paths without keeping the archive.
func Fingerprint(ctx context.Context, sourceDir string, paths []string, opts ...CreateOption) (digest.Digest, error) {
	res, err := Create(ctx, io.Discard, sourceDir, "", paths, opts...)
	if err != nil {
		return "", err
	}
	return res.Fingerprint, nil
}

// ArchiveKey identifies the exact archive bytes for fp. Destination and
// compression change the archive but not the fingerprint, so stores key
// archives by ArchiveKey rather than by the fingerprint alone. Destinations
// that differ only by a leading separator yield the same key.
func ArchiveKey(fp digest.Digest, destinationDir string, c Compression) (digest.Digest, error) {
	if err := fp.Validate(); err != nil {
		return "", err
	}
	h, err := fingerprint.New(fp.Algorithm())
	if err != nil {
		return "", err
	}
	dest := pathutil.Destination(destinationDir, "")
	return h.Extend(h.Extend(fp, "\x00"+dest), "\x00"+c.String()), nil
}

// creator holds state for a single Create call.
type creator struct {
	cfg    createConfig
	logger *slog.Logger

	resolver *pathutil.Resolver
	walker   *walk.Walker
	ingester *ingest.Ingester
	agg      *fingerprint.Aggregator
	entries  []Entry
	content  uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (c *creator) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// reportProgress sends a progress event if a callback is configured.
func (c *creator) reportProgress(stage ProgressStage, path string, filesTotal int) {
	if c.cfg.progress == nil {
		return
	}
	c.cfg.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  c.content,
		FilesDone:  len(c.entries),
		FilesTotal: filesTotal,
	})
}

func (c *creator) run(ctx context.Context, w io.Writer, sourceDir, destinationDir string, paths []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, printtype.Interrupted(err)
	}

	h, err := c.hasher()
	if err != nil {
		return nil, err
	}

	c.reportProgress(StageResolving, sourceDir, len(paths))
	c.resolver, err = pathutil.NewResolver(sourceDir, destinationDir)
	if err != nil {
		return nil, err
	}
	c.log().Info("creating archive",
		"source", c.resolver.Root(),
		"destination", destinationDir,
		"inputs", len(paths),
		"compression", c.cfg.compression.String(),
		"algorithm", h.Algorithm().String())

	aw, err := archive.NewWriter(w, c.cfg.compression)
	if err != nil {
		return nil, err
	}
	defer aw.Abort()
	c.ingester = ingest.New(aw, h, c.cfg.changeDetection == ChangeDetectionStrict)
	c.agg = fingerprint.NewAggregator(h)
	c.walker = c.newWalker()

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, printtype.Interrupted(err)
		}
		if err := c.addPath(ctx, p, len(paths)); err != nil {
			return nil, err
		}
	}

	if err := aw.Close(); err != nil {
		return nil, err
	}

	c.reportProgress(StageAggregating, "", len(c.entries))
	fp := c.agg.Sum()
	res := &Result{
		Fingerprint: fp,
		Entries:     c.entries,
		Compression: c.cfg.compression,
		Size:        aw.Written(),
	}
	c.reportProgress(StageDone, "", len(c.entries))
	c.log().Info("archive created",
		"fingerprint", fp.Encoded(),
		"file_count", len(c.entries),
		"content_bytes", c.content,
		"archive_bytes", res.Size)
	return res, nil
}

func (c *creator) hasher() (fingerprint.Hasher, error) {
	if c.cfg.algorithm == "" {
		return fingerprint.Hasher{}, nil
	}
	return fingerprint.New(c.cfg.algorithm)
}

func (c *creator) newWalker() *walk.Walker {
	opts := []walk.Option{
		walk.WithSkipped(func(path string, mode fs.FileMode) {
			c.log().Debug("skipped non-regular file", "path", path, "type", mode.Type().String())
		}),
	}
	if c.cfg.readDir != nil {
		opts = append(opts, walk.WithReadDir(c.cfg.readDir))
	}
	return walk.New(opts...)
}

// addPath archives one top-level input.
func (c *creator) addPath(ctx context.Context, p string, inputs int) error {
	rel, err := c.resolver.Clean(p)
	if err != nil {
		return err
	}
	source := c.resolver.Source(rel)

	info, err := os.Stat(source)
	if err != nil {
		return &IOError{Op: "fetch filesystem metadata for", Path: source, Err: err}
	}

	if !info.IsDir() {
		// The input may be a link; its target must stay inside the root.
		// The archived and hashed path remains the input's own path.
		if err := c.resolver.Contain(source); err != nil {
			return err
		}
		return c.addFile(ingest.Source{
			Path: source,
			Rel:  rel,
			Dest: c.resolver.Destination(rel),
			Info: info,
		}, inputs)
	}

	c.reportProgress(StageWalking, source, inputs)
	return c.walker.Walk(ctx, source, func(f walk.File) error {
		rel, err := c.resolver.Relativize(f.Path)
		if err != nil {
			return err
		}
		return c.addFile(ingest.Source{
			Path:     c.resolver.Source(rel),
			Rel:      rel,
			Dest:     c.resolver.Destination(rel),
			Info:     f.Info,
			NoFollow: true,
		}, inputs)
	})
}

// addFile ingests one file and records its digest.
func (c *creator) addFile(src ingest.Source, inputs int) error {
	if c.cfg.maxFiles > 0 && len(c.entries) >= c.cfg.maxFiles {
		return ErrTooManyFiles
	}

	c.reportProgress(StageIngesting, src.Path, inputs)
	entry, err := c.ingester.File(src)
	if err != nil {
		if src.NoFollow && errors.Is(err, platform.ErrSymlink) {
			c.log().Debug("skipped symlink", "path", src.Path)
			return nil
		}
		return err
	}
	if entry.Size > ^uint64(0)-c.content {
		return ErrSizeOverflow
	}

	c.agg.Add(entry.Digest)
	c.entries = append(c.entries, entry)
	c.content += entry.Size
	c.log().Debug("archived file", "path", entry.Path, "size", entry.Size, "executable", entry.Executable)
	return nil
}
