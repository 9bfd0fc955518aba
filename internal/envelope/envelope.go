package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/sarc/internal/sarctype"
	"github.com/meigma/sarc/internal/sizing"
	"github.com/meigma/sarc/internal/yaz0"
)

// DefaultMaxSize is the default cap on decompressed output (1GiB).
const DefaultMaxSize = 1 << 30

// Envelope removes compression wrappers. The zero value is not usable;
// construct with New.
type Envelope struct {
	maxSize uint64
	pool    *DecompressPool
	logger  *slog.Logger
}

// Option configures an Envelope.
type Option func(*Envelope)

// WithMaxSize caps the decompressed size. Set to 0 to disable the limit.
func WithMaxSize(limit uint64) Option {
	return func(e *Envelope) {
		e.maxSize = limit
	}
}

// WithPool sets the zstd decoder pool. A nil pool creates one-off decoders.
func WithPool(pool *DecompressPool) Option {
	return func(e *Envelope) {
		e.pool = pool
	}
}

// WithLogger sets the logger for envelope diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Envelope) {
		e.logger = logger
	}
}

// New creates an Envelope.
func New(opts ...Option) *Envelope {
	e := &Envelope{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Envelope) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// Open detects the format of rs and returns a stream positioned at the
// start of the raw container. Raw input is returned as-is; compressed input
// is fully decompressed into memory.
func (e *Envelope) Open(rs io.ReadSeeker) (io.ReadSeeker, Format, error) {
	format, err := Detect(rs)
	if err != nil {
		return nil, FormatUnknown, err
	}
	e.log().Debug("detected input format", "format", format.String())

	var raw io.ReadSeeker
	switch format {
	case FormatSARC:
		raw, err = e.openRaw(rs)
	case FormatYaz0:
		raw, err = e.openYaz0(rs)
	case FormatZstd:
		raw, err = e.openZstd(rs)
	default:
		err = fmt.Errorf("%w: format %s", sarctype.ErrNotAContainer, format)
	}
	if err != nil {
		return nil, format, err
	}
	return raw, format, nil
}

func (e *Envelope) openRaw(rs io.ReadSeeker) (io.ReadSeeker, error) {
	return rs, nil
}

func (e *Envelope) openYaz0(rs io.ReadSeeker) (io.ReadSeeker, error) {
	var header [yaz0.HeaderSize]byte
	if _, err := io.ReadFull(rs, header[:]); err != nil {
		return nil, fmt.Errorf("%w: yaz0: read header: %v", sarctype.ErrDecompression, err)
	}
	size, err := yaz0.DecompressedSize(header[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sarctype.ErrDecompression, err)
	}
	if e.maxSize > 0 && uint64(size) > e.maxSize {
		return nil, fmt.Errorf("%w: yaz0 declares %d bytes, limit %d", sarctype.ErrSizeOverflow, size, e.maxSize)
	}

	// A Yaz0 body never exceeds 9/8 of its output plus a few bytes for a
	// trailing flag group; anything past that is padding.
	bodyLimit := uint64(size) + uint64(size)/8 + 16
	body, err := io.ReadAll(io.LimitReader(rs, int64(bodyLimit))) //nolint:gosec // bounded by uint32 arithmetic
	if err != nil {
		return nil, fmt.Errorf("%w: yaz0: read body: %v", sarctype.ErrDecompression, err)
	}

	out, err := yaz0.Decompress(append(header[:], body...), e.maxSize)
	if err != nil {
		if errors.Is(err, yaz0.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", sarctype.ErrSizeOverflow, err)
		}
		return nil, fmt.Errorf("%w: %v", sarctype.ErrDecompression, err)
	}
	e.log().Debug("yaz0 decompressed", "size", len(out))
	return bytes.NewReader(out), nil
}

func (e *Envelope) openZstd(rs io.ReadSeeker) (io.ReadSeeker, error) {
	dec, release, err := e.pool.Get(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", sarctype.ErrDecompression, err)
	}
	defer release()

	out, err := sizing.ReadAllWithLimit(dec, e.maxSize, sarctype.ErrSizeOverflow)
	if err != nil {
		if errors.Is(err, sarctype.ErrSizeOverflow) {
			return nil, fmt.Errorf("%w: zstd output exceeds %d bytes", err, e.maxSize)
		}
		return nil, fmt.Errorf("%w: zstd: %v", sarctype.ErrDecompression, err)
	}
	e.log().Debug("zstd decompressed", "size", len(out))
	return bytes.NewReader(out), nil
}
