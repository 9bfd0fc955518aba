package sarc

import "log/slog"

const (
	// DefaultMaxDecompressedSize is the default cap on decompressed input (1GiB).
	DefaultMaxDecompressedSize = 1 << 30

	// DefaultMaxDecoderMemory is the default zstd decoder memory limit (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger for decode diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithMaxDecompressedSize limits the size of a decompressed Yaz0 or zstd input.
// Set limit to 0 to disable the limit.
func WithMaxDecompressedSize(limit uint64) Option {
	return func(d *Decoder) {
		d.maxDecompressedSize = limit
	}
}

// WithMaxDecoderMemory limits the maximum memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(d *Decoder) {
		d.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(d *Decoder) {
		if n < 0 {
			n = 0
		}
		d.decoderConcurrency = n
	}
}

// WithDecoderLowmem sets whether the zstd decoder should use low-memory mode (default: false).
func WithDecoderLowmem(enabled bool) Option {
	return func(d *Decoder) {
		d.decoderLowmem = enabled
	}
}

// WithVerifyHashes checks that every stored name hashes to its node's hash
// using the archive's hash key. Mismatches fail with ErrHashMismatch.
func WithVerifyHashes(enabled bool) Option {
	return func(d *Decoder) {
		d.verifyHashes = enabled
	}
}
