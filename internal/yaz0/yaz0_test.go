package yaz0

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(size uint32) []byte {
	h := make([]byte, HeaderSize)
	copy(h, Magic)
	binary.BigEndian.PutUint32(h[4:], size)
	return h
}

func TestDecompress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
		want []byte
	}{
		{
			name: "literals only",
			body: []byte{0xFF, 'h', 'e', 'l', 'l', 'o'},
			want: []byte("hello"),
		},
		{
			name: "short back-reference",
			// three literals, then copy 6 bytes from distance 3
			body: []byte{0xE0, 'a', 'b', 'c', 0x40, 0x02},
			want: []byte("abcabcabc"),
		},
		{
			name: "long back-reference",
			// one literal, then copy 0x20 bytes from distance 1
			body: []byte{0x80, 'z', 0x00, 0x00, 0x0E},
			want: bytes.Repeat([]byte("z"), 0x21),
		},
		{
			name: "multiple groups",
			body: []byte{0xFF, '0', '1', '2', '3', '4', '5', '6', '7', 0xC0, '8', '9'},
			want: []byte("0123456789"),
		},
		{
			name: "empty",
			body: nil,
			want: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := append(header(uint32(len(tt.want))), tt.body...)
			got, err := Decompress(src, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecompress_IgnoresTrailingInput(t *testing.T) {
	t.Parallel()

	src := append(header(2), 0xFF, 'o', 'k', 'x', 'x', 'x')
	got, err := Decompress(src, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got)
}

func TestDecompress_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     []byte
		max     uint64
		wantErr error
	}{
		{
			name:    "short header",
			src:     []byte("Yaz0"),
			wantErr: ErrCorrupt,
		},
		{
			name:    "bad magic",
			src:     append([]byte("Yaz1"), make([]byte, 12)...),
			wantErr: ErrCorrupt,
		},
		{
			name:    "truncated literal",
			src:     append(header(4), 0xFF, 'a'),
			wantErr: ErrCorrupt,
		},
		{
			name:    "reference before start",
			src:     append(header(4), 0x00, 0x10, 0x00),
			wantErr: ErrCorrupt,
		},
		{
			name:    "over limit",
			src:     append(header(1024), 0xFF),
			max:     512,
			wantErr: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decompress(tt.src, tt.max)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
