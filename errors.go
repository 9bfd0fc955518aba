package sarc

import "github.com/meigma/sarc/internal/sarctype"

// Sentinel errors re-exported from internal/sarctype.
var (
	// ErrNotAContainer is returned when the input is neither a SARC container
	// nor a Yaz0 or zstd stream.
	ErrNotAContainer = sarctype.ErrNotAContainer

	// ErrDecompression is returned when the compression envelope is malformed.
	ErrDecompression = sarctype.ErrDecompression

	// ErrBadMagic is returned when the (decompressed) container does not start with "SARC".
	ErrBadMagic = sarctype.ErrBadMagic

	// ErrLengthMismatch is returned when the declared file length differs from
	// the actual length, or an entry's data window is invalid.
	ErrLengthMismatch = sarctype.ErrLengthMismatch

	// ErrUnsupportedVersion is returned for container versions other than 0x0100.
	ErrUnsupportedVersion = sarctype.ErrUnsupportedVersion

	// ErrMissingSFAT is returned when the file allocation table is missing.
	ErrMissingSFAT = sarctype.ErrMissingSFAT

	// ErrMissingSFNT is returned when the name table is missing.
	ErrMissingSFNT = sarctype.ErrMissingSFNT

	// ErrTruncated is returned when a structure runs past the end of the data.
	ErrTruncated = sarctype.ErrTruncated

	// ErrHashMismatch is returned by hash verification (see WithVerifyHashes).
	ErrHashMismatch = sarctype.ErrHashMismatch

	// ErrSizeOverflow is returned when decompressed output exceeds the configured limit.
	ErrSizeOverflow = sarctype.ErrSizeOverflow

	// ErrKeyNotFound is returned by Lookup for unknown names. It matches fs.ErrNotExist.
	ErrKeyNotFound = sarctype.ErrKeyNotFound

	// ErrUnsupported is returned by every mutating method. It matches errors.ErrUnsupported.
	ErrUnsupported = sarctype.ErrUnsupported
)

// FormatError describes a structural decode failure, including the field
// and byte offset at which it was found.
type FormatError = sarctype.FormatError
