// Package yaz0 decodes the Yaz0 back-reference compression format.
//
// A Yaz0 stream is a 16-byte header ("Yaz0", big-endian decompressed size,
// 8 reserved bytes) followed by groups of up to eight chunks. Each group is
// introduced by a flag byte read from the most significant bit down: a set
// bit copies one literal byte, a clear bit copies a run from earlier output.
package yaz0

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the 4-byte marker at the start of every Yaz0 stream.
const Magic = "Yaz0"

// HeaderSize is the size of the Yaz0 header in bytes.
const HeaderSize = 16

var (
	// ErrCorrupt is returned for truncated streams and back-references that
	// point before the start of the output.
	ErrCorrupt = errors.New("yaz0: corrupt stream")

	// ErrTooLarge is returned when the declared size exceeds the caller's limit.
	ErrTooLarge = errors.New("yaz0: declared size exceeds limit")
)

// DecompressedSize returns the size recorded in a Yaz0 header.
func DecompressedSize(src []byte) (uint32, error) {
	if len(src) < HeaderSize {
		return 0, fmt.Errorf("%w: header needs %d bytes, have %d", ErrCorrupt, HeaderSize, len(src))
	}
	if string(src[:4]) != Magic {
		return 0, fmt.Errorf("%w: bad magic %q", ErrCorrupt, src[:4])
	}
	return binary.BigEndian.Uint32(src[4:8]), nil
}

// Decompress decodes a complete Yaz0 stream held in src.
// A maxSize of 0 disables the output size limit.
// Input bytes following the last chunk needed to fill the output are ignored.
func Decompress(src []byte, maxSize uint64) ([]byte, error) {
	size, err := DecompressedSize(src)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && uint64(size) > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, maxSize)
	}

	dst := make([]byte, size)
	in := HeaderSize
	out := 0

	var flags byte
	var remaining int
	for out < len(dst) {
		if remaining == 0 {
			if in >= len(src) {
				return nil, truncated(in)
			}
			flags = src[in]
			in++
			remaining = 8
		}

		if flags&0x80 != 0 {
			if in >= len(src) {
				return nil, truncated(in)
			}
			dst[out] = src[in]
			in++
			out++
		} else {
			if in+2 > len(src) {
				return nil, truncated(in)
			}
			b0, b1 := src[in], src[in+1]
			in += 2

			dist := (int(b0&0x0F)<<8 | int(b1)) + 1
			n := int(b0 >> 4)
			if n == 0 {
				if in >= len(src) {
					return nil, truncated(in)
				}
				n = int(src[in]) + 0x12
				in++
			} else {
				n += 2
			}

			from := out - dist
			if from < 0 {
				return nil, fmt.Errorf("%w: back-reference distance %d at output offset %d", ErrCorrupt, dist, out)
			}
			if n > len(dst)-out {
				n = len(dst) - out
			}
			// Runs may overlap their own output, so copy byte by byte.
			for i := 0; i < n; i++ {
				dst[out+i] = dst[from+i]
			}
			out += n
		}

		flags <<= 1
		remaining--
	}

	return dst, nil
}

func truncated(offset int) error {
	return fmt.Errorf("%w: input ends at offset %d", ErrCorrupt, offset)
}
