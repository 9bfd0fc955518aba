package envelope

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DecompressPool manages reusable zstd decoders to reduce allocation overhead.
// It is safe for concurrent use; every Get hands out a decoder owned by the
// caller until release.
type DecompressPool struct {
	pool               *sync.Pool
	maxDecoderMemory   uint64
	decoderConcurrency int
	decoderLowmem      bool
}

// PoolOption configures a DecompressPool.
type PoolOption func(*DecompressPool)

// WithDecoderConcurrency sets the decoder concurrency level (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) PoolOption {
	return func(p *DecompressPool) {
		if n < 0 {
			n = 0
		}
		p.decoderConcurrency = n
	}
}

// WithDecoderLowmem enables or disables low-memory mode for decoders.
func WithDecoderLowmem(enabled bool) PoolOption {
	return func(p *DecompressPool) {
		p.decoderLowmem = enabled
	}
}

// NewDecompressPool creates a new pool for zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func NewDecompressPool(maxMemory uint64, opts ...PoolOption) *DecompressPool {
	p := &DecompressPool{
		maxDecoderMemory:   maxMemory,
		decoderConcurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// Get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *DecompressPool) Get(r io.Reader) (*zstd.Decoder, func(), error) {
	if p == nil || p.pool == nil {
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New function failed, try directly
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		dec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// newDecoder creates a new zstd decoder with the configured limits.
func (p *DecompressPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	if p == nil {
		return zstd.NewReader(r)
	}
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(p.decoderConcurrency),
		zstd.WithDecoderLowmem(p.decoderLowmem),
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}
