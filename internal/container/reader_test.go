package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sarc/internal/sarctype"
)

func TestReader_AtRestoresCursor(t *testing.T) {
	t.Parallel()

	r, err := newReader(bytes.NewReader([]byte("\x00\x01\x00\x02name\x00tail")))
	require.NoError(t, err)

	first, err := r.u16("first")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), first)

	var name string
	require.NoError(t, r.at(4, func() error {
		var err error
		name, err = r.cstring("name")
		return err
	}))
	assert.Equal(t, "name", name)
	assert.Equal(t, int64(2), r.off)

	second, err := r.u16("second")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), second)
}

func TestReader_AtRestoresCursorOnError(t *testing.T) {
	t.Parallel()

	r, err := newReader(bytes.NewReader([]byte("abcdef")))
	require.NoError(t, err)
	require.NoError(t, r.skip(1))

	boom := errors.New("boom")
	err = r.at(4, func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), r.off)

	b, err := r.block("next", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), b)
}

func TestReader_ByteOrder(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0x02, 0x03, 0x04}

	r, err := newReader(bytes.NewReader(data))
	require.NoError(t, err)
	v, err := r.u32("be")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v)

	r, err = newReader(bytes.NewReader(data))
	require.NoError(t, err)
	r.order = binary.LittleEndian
	v, err = r.u32("le")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)
}

func TestReader_CStringLong(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("n"), 200)
	r, err := newReader(bytes.NewReader(append(append([]byte{}, long...), 0)))
	require.NoError(t, err)

	s, err := r.cstring("name")
	require.NoError(t, err)
	assert.Equal(t, string(long), s)
}

func TestReader_Truncated(t *testing.T) {
	t.Parallel()

	r, err := newReader(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)

	_, err = r.cstring("name")
	require.ErrorIs(t, err, sarctype.ErrTruncated)

	r, err = newReader(bytes.NewReader([]byte("ab")))
	require.NoError(t, err)
	_, err = r.u32("value")
	var fe *sarctype.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "value", fe.Field)
	assert.ErrorIs(t, err, sarctype.ErrTruncated)
}
