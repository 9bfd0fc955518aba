package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSink writes entries below a destination directory.
//
// Entry names are resolved inside an os.Root, so names that escape the
// destination are rejected. By default content goes to a temporary file in
// the target directory and is renamed into place on Commit.
type FileSink struct {
	destDir     string
	overwrite   bool
	directWrite bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.directWrite = enabled
	}
}

// NewFileSink creates a FileSink that writes to destDir.
func NewFileSink(destDir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{destDir: destDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldProcess returns false if the file already exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(entry *Entry) bool {
	if s.overwrite {
		return true
	}
	if !fs.ValidPath(entry.Name) {
		// Let Writer report the invalid name.
		return true
	}
	_, err := os.Stat(filepath.Join(s.destDir, filepath.FromSlash(entry.Name)))
	return errors.Is(err, fs.ErrNotExist)
}

// Writer returns a Committer for the entry's destination file.
func (s *FileSink) Writer(entry *Entry) (Committer, error) {
	if !fs.ValidPath(entry.Name) || entry.Name == "." {
		return nil, &fs.PathError{Op: "copy", Path: entry.Name, Err: fs.ErrInvalid}
	}
	rel := filepath.FromSlash(entry.Name)

	root, err := os.OpenRoot(s.destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", s.destDir, err)
	}
	if err := root.MkdirAll(filepath.Dir(rel), 0o750); err != nil {
		_ = root.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("create directory for %s: %w", entry.Name, err)
	}

	c := &fileCommitter{root: root, destRel: rel, tempRel: rel}
	if s.directWrite {
		c.file, err = root.OpenFile(rel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	} else {
		c.file, c.tempRel, err = createTempFile(root, filepath.Dir(rel), ".sarc-")
	}
	if err != nil {
		_ = root.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("create file for %s: %w", entry.Name, err)
	}
	return c, nil
}

// fileCommitter writes to tempRel and renames it to destRel on Commit.
// With direct writes tempRel and destRel are the same path.
type fileCommitter struct {
	root    *os.Root
	file    *os.File
	destRel string
	tempRel string
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file and moves it into place.
func (c *fileCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		_ = c.root.Close()           //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close %s: %w", c.tempRel, err)
	}
	if c.tempRel != c.destRel {
		if err := c.root.Rename(c.tempRel, c.destRel); err != nil {
			_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
			_ = c.root.Close()           //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("rename to %s: %w", c.destRel, err)
		}
	}
	return c.root.Close()
}

// Discard closes and removes the file.
func (c *fileCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // we're cleaning up
	if err := c.root.Remove(c.tempRel); err != nil {
		_ = c.root.Close() //nolint:errcheck // best-effort cleanup
		return err
	}
	return c.root.Close()
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
