package sarc

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/sarc/internal/container"
	"github.com/meigma/sarc/internal/envelope"
)

// ByteSource provides random access to an archive of known size.
//
// Implementations exist for local files (via io.SectionReader) and HTTP
// range requests (see the http subpackage).
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Decoder decodes archives with a fixed configuration.
//
// A Decoder is safe for concurrent use. Each call decodes independently;
// the only shared member is a pool of zstd decoders.
type Decoder struct {
	maxDecompressedSize uint64
	maxDecoderMemory    uint64
	decoderConcurrency  int
	decoderLowmem       bool
	verifyHashes        bool
	logger              *slog.Logger
	pool                *envelope.DecompressPool
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxDecompressedSize: DefaultMaxDecompressedSize,
		maxDecoderMemory:    DefaultMaxDecoderMemory,
		decoderConcurrency:  1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = envelope.NewDecompressPool(d.maxDecoderMemory,
		envelope.WithDecoderConcurrency(d.decoderConcurrency),
		envelope.WithDecoderLowmem(d.decoderLowmem),
	)
	return d
}

// log returns the logger, falling back to a discard logger if nil.
func (d *Decoder) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Read decodes the archive starting at the current position of r.
// The archive must extend to the end of the stream. Read does not close r.
func (d *Decoder) Read(r io.ReadSeeker) (*Archive, error) {
	env := envelope.New(
		envelope.WithMaxSize(d.maxDecompressedSize),
		envelope.WithPool(d.pool),
		envelope.WithLogger(d.logger),
	)
	raw, format, err := env.Open(r)
	if err != nil {
		return nil, err
	}

	table, err := container.Decode(raw,
		container.WithVerifyHashes(d.verifyHashes),
		container.WithLogger(d.logger),
	)
	if err != nil {
		return nil, err
	}

	a := newArchive(table, format, d.logger)
	d.log().Debug("decoded archive", "format", format.String(), "entries", a.Len())
	return a, nil
}

// Decode decodes an archive held in memory. Entry contents are copied out
// of data, so data may be reused after Decode returns.
func (d *Decoder) Decode(data []byte) (*Archive, error) {
	return d.Read(bytes.NewReader(data))
}

// OpenFile decodes the archive at path. The file is closed before
// OpenFile returns.
func (d *Decoder) OpenFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := d.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// ReadSource reads src in full with a single ReadAt call and decodes it.
func (d *Decoder) ReadSource(src ByteSource) (*Archive, error) {
	size := src.Size()
	if size < 0 {
		return nil, fmt.Errorf("%w: negative source size %d", ErrSizeOverflow, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(src, 0, size), buf); err != nil {
		return nil, fmt.Errorf("sarc: read source: %w", err)
	}
	return d.Decode(buf)
}

// Decode decodes an archive held in memory.
func Decode(data []byte, opts ...Option) (*Archive, error) {
	return NewDecoder(opts...).Decode(data)
}

// Read decodes the archive starting at the current position of r.
func Read(r io.ReadSeeker, opts ...Option) (*Archive, error) {
	return NewDecoder(opts...).Read(r)
}

// OpenFile decodes the archive at path.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	return NewDecoder(opts...).OpenFile(path)
}

// ReadSource decodes the archive provided by src.
func ReadSource(src ByteSource, opts ...Option) (*Archive, error) {
	return NewDecoder(opts...).ReadSource(src)
}
