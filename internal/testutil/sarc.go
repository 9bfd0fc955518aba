// Package testutil builds SARC images and compression envelopes for tests.
package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/sarc/internal/sarctype"
)

// Fixed layout sizes of a SARC image.
const (
	HeaderSize   = 0x14
	SFATOffset   = HeaderSize
	SFATHeader   = 0x0C
	NodeSize     = 0x10
	SFNTHeader   = 0x08
	VersionField = 0x10
)

// File describes one archive member for Builder.
type File struct {
	Name string
	// Hash overrides the computed name hash when non-zero.
	Hash uint32
	// Unnamed stores the entry without a name table record.
	Unnamed bool
	Data    []byte
}

// ByteOrder is satisfied by binary.BigEndian and binary.LittleEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Builder assembles a SARC image.
type Builder struct {
	// Order is the byte order of the image. Defaults to big-endian.
	Order ByteOrder
	// Version defaults to 0x0100.
	Version uint16
	// HashKey defaults to sarctype.DefaultHashKey.
	HashKey uint32
	// DataAlign aligns each entry's data. Defaults to 4.
	DataAlign int
	Files     []File
}

// SFNTOffset returns the offset of the SFNT magic for an image with n nodes.
func SFNTOffset(n int) int {
	return SFATOffset + SFATHeader + n*NodeSize
}

// NodeOffset returns the offset of node i.
func NodeOffset(i int) int {
	return SFATOffset + SFATHeader + i*NodeSize
}

// Build returns the encoded image.
func (b Builder) Build() []byte {
	var order ByteOrder = binary.BigEndian
	if b.Order != nil {
		order = b.Order
	}
	version := b.Version
	if version == 0 {
		version = 0x0100
	}
	key := b.HashKey
	if key == 0 {
		key = sarctype.DefaultHashKey
	}
	align := b.DataAlign
	if align <= 0 {
		align = 4
	}

	// Name table: each name is zero-terminated and padded to 4 bytes.
	var names []byte
	nameOffsets := make([]int, len(b.Files))
	for i, f := range b.Files {
		if f.Unnamed {
			continue
		}
		nameOffsets[i] = len(names)
		names = append(names, f.Name...)
		names = append(names, 0)
		names = pad(names, 4)
	}

	// Data region, relative to its own start.
	var data []byte
	begins := make([]int, len(b.Files))
	ends := make([]int, len(b.Files))
	for i, f := range b.Files {
		data = pad(data, align)
		begins[i] = len(data)
		data = append(data, f.Data...)
		ends[i] = len(data)
	}

	out := make([]byte, 0, SFNTOffset(len(b.Files))+SFNTHeader+len(names)+len(data)+align)

	// SARC header. The total length is patched once the image is complete.
	out = append(out, "SARC"...)
	out = order.AppendUint16(out, HeaderSize)
	out = order.AppendUint16(out, 0xFEFF)
	out = order.AppendUint32(out, 0)
	out = order.AppendUint32(out, 0)
	out = order.AppendUint16(out, version)
	out = order.AppendUint16(out, 0)

	// SFAT.
	out = append(out, "SFAT"...)
	out = order.AppendUint16(out, SFATHeader)
	out = order.AppendUint16(out, uint16(len(b.Files))) //nolint:gosec // test fixtures stay small
	out = order.AppendUint32(out, key)
	for i, f := range b.Files {
		hash := f.Hash
		if hash == 0 && !f.Unnamed {
			hash = sarctype.NameHash(f.Name, key)
		}
		var attrs uint32
		if !f.Unnamed {
			attrs = 0x01000000 | uint32(nameOffsets[i]/4) //nolint:gosec // test fixtures stay small
		}
		out = order.AppendUint32(out, hash)
		out = order.AppendUint32(out, attrs)
		out = order.AppendUint32(out, uint32(begins[i])) //nolint:gosec // test fixtures stay small
		out = order.AppendUint32(out, uint32(ends[i]))   //nolint:gosec // test fixtures stay small
	}

	// SFNT.
	out = append(out, "SFNT"...)
	out = order.AppendUint16(out, SFNTHeader)
	out = order.AppendUint16(out, 0)
	out = append(out, names...)

	out = pad(out, align)
	dataStart := len(out)
	out = append(out, data...)

	order.PutUint32(out[8:], uint32(len(out)))  //nolint:gosec // test fixtures stay small
	order.PutUint32(out[12:], uint32(dataStart)) //nolint:gosec // test fixtures stay small
	return out
}

// DataStart returns the data region offset recorded in an image.
func DataStart(image []byte, order binary.ByteOrder) int {
	return int(order.Uint32(image[12:16]))
}

func pad(b []byte, align int) []byte {
	for len(b)%align != 0 {
		b = append(b, 0)
	}
	return b
}

// Yaz0 wraps data in a Yaz0 stream using literal chunks only.
func Yaz0(data []byte) []byte {
	out := make([]byte, 16, 16+len(data)+len(data)/8+1)
	copy(out, "Yaz0")
	binary.BigEndian.PutUint32(out[4:], uint32(len(data))) //nolint:gosec // test fixtures stay small
	for i := 0; i < len(data); i += 8 {
		end := min(i+8, len(data))
		out = append(out, 0xFF)
		out = append(out, data[i:end]...)
	}
	return out
}

// Zstd compresses data into a single zstd frame.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tb.Fatalf("zstd.NewWriter() error = %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
