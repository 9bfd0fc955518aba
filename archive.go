package sarc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/sarc/internal/container"
	"github.com/meigma/sarc/internal/envelope"
	"github.com/meigma/sarc/internal/sarctype"
)

// Entry is a read-only view of one archive member.
type Entry = sarctype.Entry

// Format identifies the outermost encoding an archive was decoded from.
type Format = envelope.Format

// Format constants.
const (
	FormatSARC = envelope.FormatSARC
	FormatYaz0 = envelope.FormatYaz0
	FormatZstd = envelope.FormatZstd
)

// DefaultHashKey is the SFAT hash multiplier used by practically every archive.
const DefaultHashKey = sarctype.DefaultHashKey

// NameHash returns the SFAT hash of name under key.
func NameHash(name string, key uint32) uint32 {
	return sarctype.NameHash(name, key)
}

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// Archive is a decoded, immutable SARC archive.
//
// Entries keep the order of the on-disk file table. When the table holds
// the same name twice, the later entry's content wins and the name keeps
// its first position.
type Archive struct {
	entries   []Entry
	index     map[string]int
	paths     []string // fs.ValidPath names, sorted
	format    Format
	byteOrder binary.ByteOrder
	hashKey   uint32
	logger    *slog.Logger
}

func newArchive(t *container.Table, format Format, logger *slog.Logger) *Archive {
	a := &Archive{
		entries:   t.Entries,
		index:     t.Index,
		format:    format,
		byteOrder: t.ByteOrder,
		hashKey:   t.HashKey,
		logger:    logger,
	}
	for _, e := range a.entries {
		if fs.ValidPath(e.Name) && e.Name != "." {
			a.paths = append(a.paths, e.Name)
		}
	}
	slices.Sort(a.paths)
	return a
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Lookup returns a copy of the content stored under name.
// It returns ErrKeyNotFound if the archive has no such entry.
func (a *Archive) Lookup(name string) ([]byte, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}
	return bytes.Clone(e.Data), nil
}

// Entry returns a read-only view of the entry stored under name.
//
// The view's Data aliases archive memory and must not be modified.
func (a *Archive) Entry(name string) (Entry, bool) {
	i, ok := a.index[name]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Contains reports whether the archive has an entry named name.
func (a *Archive) Contains(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Entries returns an iterator over all entries in table order.
//
// The yielded views alias archive memory and must not be modified.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// All returns an iterator over (name, content) pairs in table order.
//
// The yielded slices alias archive memory and must not be modified.
func (a *Archive) All() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for _, e := range a.entries {
			if !yield(e.Name, e.Data) {
				return
			}
		}
	}
}

// Names returns the entry names in table order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of distinct entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Set always fails with ErrUnsupported. Archives are read-only.
func (a *Archive) Set(name string, _ []byte) error {
	return fmt.Errorf("set %q: %w", name, ErrUnsupported)
}

// Delete always fails with ErrUnsupported. Archives are read-only.
func (a *Archive) Delete(name string) error {
	return fmt.Errorf("delete %q: %w", name, ErrUnsupported)
}

// Digest returns the sha256 digest of the content stored under name.
func (a *Archive) Digest(name string) (digest.Digest, error) {
	e, ok := a.Entry(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}
	return digest.FromBytes(e.Data), nil
}

// Format returns the envelope the archive was decoded from.
func (a *Archive) Format() Format {
	return a.format
}

// ByteOrder returns the byte order of the container.
func (a *Archive) ByteOrder() binary.ByteOrder {
	return a.byteOrder
}

// HashKey returns the SFAT hash multiplier recorded in the container.
func (a *Archive) HashKey() uint32 {
	return a.hashKey
}
