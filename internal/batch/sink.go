package batch

import (
	"io"

	"github.com/meigma/sarc/internal/sarctype"
)

// Entry is an alias for sarctype.Entry.
type Entry = sarctype.Entry

// Sink receives entry content during batch processing.
//
// Implementations determine where content is written and can filter which
// entries to process.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	ShouldProcess(entry *Entry) bool

	// Writer returns a writer for the entry's content. The caller writes the
	// full content, then calls Commit, or Discard on any error.
	Writer(entry *Entry) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
