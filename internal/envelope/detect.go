// Package envelope detects and removes the whole-file compression wrapper
// around a SARC container.
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/sarc/internal/sarctype"
)

// Magic markers, read big-endian from the first four bytes.
const (
	MagicSARC uint32 = 0x53415243 // "SARC"
	MagicYaz0 uint32 = 0x59617A30 // "Yaz0"
	MagicZstd uint32 = 0x28B52FFD // zstd frame
)

// Format identifies the outermost encoding of an input.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatSARC
	FormatYaz0
	FormatZstd
)

func (f Format) String() string {
	switch f {
	case FormatSARC:
		return "sarc"
	case FormatYaz0:
		return "yaz0"
	case FormatZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Classify maps the first four bytes of an input to a Format.
func Classify(magic []byte) Format {
	if len(magic) < 4 {
		return FormatUnknown
	}
	switch binary.BigEndian.Uint32(magic) {
	case MagicSARC:
		return FormatSARC
	case MagicYaz0:
		return FormatYaz0
	case MagicZstd:
		return FormatZstd
	default:
		return FormatUnknown
	}
}

// Detect peeks at the first four bytes of rs and classifies them.
// The stream position is restored before Detect returns, including on error.
func Detect(rs io.ReadSeeker) (format Format, err error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return FormatUnknown, fmt.Errorf("sarc: locate stream start: %w", err)
	}
	defer func() {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil && err == nil {
			format, err = FormatUnknown, fmt.Errorf("sarc: rewind after peek: %w", serr)
		}
	}()

	var magic [4]byte
	n, err := io.ReadFull(rs, magic[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return FormatUnknown, fmt.Errorf("%w: input is %d bytes", sarctype.ErrNotAContainer, n)
		}
		return FormatUnknown, fmt.Errorf("sarc: read magic: %w", err)
	}

	format = Classify(magic[:])
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: magic %q", sarctype.ErrNotAContainer, magic[:])
	}
	return format, nil
}
