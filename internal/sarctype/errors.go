// Package sarctype holds the types and sentinel errors shared between the
// container decoder, the envelope adapter and the public sarc package.
package sarctype

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors.
var (
	// ErrNotAContainer is returned when the input starts with none of the
	// recognized magic markers (SARC, Yaz0, zstd).
	ErrNotAContainer = errors.New("sarc: not a SARC file")

	// ErrDecompression is returned when the compression envelope cannot be decoded.
	ErrDecompression = errors.New("sarc: decompression failed")

	// ErrBadMagic is returned when the container does not start with "SARC".
	ErrBadMagic = errors.New("sarc: bad magic")

	// ErrLengthMismatch is returned when a declared length or data window
	// disagrees with the actual stream.
	ErrLengthMismatch = errors.New("sarc: length mismatch, possibly corrupt")

	// ErrUnsupportedVersion is returned for any version other than 0x0100.
	ErrUnsupportedVersion = errors.New("sarc: unsupported version")

	// ErrMissingSFAT is returned when the file allocation table marker is absent.
	ErrMissingSFAT = errors.New("sarc: could not find SFAT section")

	// ErrMissingSFNT is returned when the name table marker is absent.
	ErrMissingSFNT = errors.New("sarc: could not find SFNT section")

	// ErrTruncated is returned when a structure extends past the end of the stream.
	ErrTruncated = errors.New("sarc: unexpected end of data")

	// ErrHashMismatch is returned when name hash verification is enabled and a
	// stored name does not hash to its node's hash.
	ErrHashMismatch = errors.New("sarc: name hash mismatch")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("sarc: size overflow")

	// ErrKeyNotFound is returned when a lookup names an entry that does not exist.
	// It matches fs.ErrNotExist.
	ErrKeyNotFound = fmt.Errorf("sarc: key not found: %w", fs.ErrNotExist)

	// ErrUnsupported is returned by every mutating operation. Archives are read-only.
	// It matches errors.ErrUnsupported.
	ErrUnsupported = fmt.Errorf("sarc: archive is read-only: %w", errors.ErrUnsupported)
)

// FormatError describes a structural problem found while decoding a container.
type FormatError struct {
	// Field names the structure being decoded (e.g. "version", "node[3].data_end").
	Field string

	// Offset is the byte offset of Field relative to the start of the container.
	Offset int64

	// Detail optionally carries the offending value.
	Detail string

	// Err is the sentinel describing the failure class.
	Err error
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v (%s at offset %#x)", e.Err, e.Field, e.Offset)
	}
	return fmt.Sprintf("%v (%s at offset %#x: %s)", e.Err, e.Field, e.Offset, e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
