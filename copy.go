package sarc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/sarc/internal/batch"
)

// CopyStats reports the outcome of an extraction.
type CopyStats struct {
	FileCount  int
	TotalBytes uint64
	Skipped    int
}

// CopyOption configures CopyTo and CopyDir operations.
type CopyOption func(*copyConfig)

type copyConfig struct {
	overwrite bool
	cleanDest bool
	workers   int
}

// CopyWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func CopyWithOverwrite(overwrite bool) CopyOption {
	return func(c *copyConfig) {
		c.overwrite = overwrite
	}
}

// CopyWithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func CopyWithWorkers(n int) CopyOption {
	return func(c *copyConfig) {
		c.workers = n
	}
}

// CopyWithCleanDest removes the destination before extracting and writes
// files in place instead of through temp files. For CopyDir only the
// prefix subtree of the destination is removed. The target must not be the
// filesystem root or the current directory.
func CopyWithCleanDest(clean bool) CopyOption {
	return func(c *copyConfig) {
		c.cleanDest = clean
	}
}

// CopyTo extracts the named entries to destDir.
//
// Names that are not in the archive or are not valid fs paths are skipped.
// Files are written atomically using temp files and renames, and parent
// directories are created as needed. Existing files are skipped unless
// CopyWithOverwrite is set.
func (a *Archive) CopyTo(destDir string, names []string, opts ...CopyOption) (CopyStats, error) {
	entries := make([]*batch.Entry, 0, len(names))
	skipped := 0
	for _, name := range names {
		e, ok := a.Entry(name)
		if !ok || !fs.ValidPath(name) {
			skipped++
			continue
		}
		entries = append(entries, &e)
	}
	stats, err := a.copyEntries(destDir, ".", entries, opts)
	stats.Skipped += skipped
	return stats, err
}

// CopyDir extracts all entries under a directory prefix to destDir.
//
// If prefix is "" or ".", every entry with a valid fs path is extracted.
func (a *Archive) CopyDir(destDir, prefix string, opts ...CopyOption) (CopyStats, error) {
	prefix = NormalizePath(prefix)
	if !fs.ValidPath(prefix) {
		return CopyStats{}, &fs.PathError{Op: "copydir", Path: prefix, Err: fs.ErrInvalid}
	}
	dir := dirPrefix(prefix)

	var entries []*batch.Entry //nolint:prealloc // size unknown until iteration
	for _, e := range a.entries {
		if fs.ValidPath(e.Name) && strings.HasPrefix(e.Name, dir) {
			entries = append(entries, &e)
		}
	}
	return a.copyEntries(destDir, prefix, entries, opts)
}

// copyEntries uses the batch processor to copy entries to destDir.
func (a *Archive) copyEntries(destDir, prefix string, entries []*batch.Entry, opts []CopyOption) (CopyStats, error) {
	cfg := copyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.cleanDest {
		target, err := cleanCopyDest(destDir, prefix)
		if err != nil {
			return CopyStats{}, err
		}
		if err := os.RemoveAll(target); err != nil {
			return CopyStats{}, fmt.Errorf("clean destination %s: %w", target, err)
		}
	}
	if len(entries) == 0 {
		return CopyStats{}, nil
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return CopyStats{}, fmt.Errorf("create destination %s: %w", destDir, err)
	}

	sink := batch.NewFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite || cfg.cleanDest),
		batch.WithDirectWrites(cfg.cleanDest),
	)
	procOpts := []batch.ProcessorOption{batch.WithLogger(a.logger)}
	if cfg.workers != 0 {
		procOpts = append(procOpts, batch.WithWorkers(cfg.workers))
	}

	stats, err := batch.NewProcessor(procOpts...).Process(entries, sink)
	a.log().Debug("extracted entries", "dest", destDir, "files", stats.Processed, "skipped", stats.Skipped)
	return CopyStats{
		FileCount:  stats.Processed,
		TotalBytes: stats.TotalBytes,
		Skipped:    stats.Skipped,
	}, err
}

// cleanCopyDest resolves the directory CopyWithCleanDest removes and
// refuses the filesystem root and the working directory.
func cleanCopyDest(destDir, prefix string) (string, error) {
	if destDir == "" {
		return "", errors.New("clean destination: destDir is empty")
	}

	target := destDir
	if prefix != "" && prefix != "." {
		target = filepath.Join(destDir, filepath.FromSlash(prefix))
	}
	target = filepath.Clean(target)
	if target == "." || target == string(filepath.Separator) {
		return "", fmt.Errorf("clean destination: refusing to remove %q", target)
	}
	if volume := filepath.VolumeName(target); volume != "" {
		if target == volume || target == volume+string(filepath.Separator) {
			return "", fmt.Errorf("clean destination: refusing to remove %q", target)
		}
	}
	return target, nil
}
