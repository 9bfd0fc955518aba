package container_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sarc/internal/container"
	"github.com/meigma/sarc/internal/sarctype"
	"github.com/meigma/sarc/internal/testutil"
)

func sampleFiles() []testutil.File {
	return []testutil.File{
		{Name: "Layout/main.bflyt", Data: []byte("layout data")},
		{Name: "Timg/icon.bflim", Data: bytes.Repeat([]byte{0xAB}, 37)},
		{Name: "empty.txt", Data: nil},
		{Unnamed: true, Hash: 0x1A2B3C4D, Data: []byte("anonymous")},
	}
}

func decode(t *testing.T, image []byte, opts ...container.Option) *container.Table {
	t.Helper()
	table, err := container.Decode(bytes.NewReader(image), opts...)
	require.NoError(t, err)
	return table
}

func asMap(table *container.Table) map[string][]byte {
	m := make(map[string][]byte, len(table.Entries))
	for _, e := range table.Entries {
		m[e.Name] = e.Data
	}
	return m
}

func TestDecode_BigEndian(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Files: sampleFiles()}.Build()
	table := decode(t, image)

	assert.Equal(t, binary.BigEndian, table.ByteOrder)
	assert.Equal(t, uint32(sarctype.DefaultHashKey), table.HashKey)
	assert.Equal(t, int64(len(image)), table.Size)
	require.Len(t, table.Entries, 4)

	names := make([]string, 0, len(table.Entries))
	for _, e := range table.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Layout/main.bflyt", "Timg/icon.bflim", "empty.txt", "1A2B3C4D.bin"}, names)

	for i, f := range sampleFiles() {
		assert.Equal(t, len(f.Data), len(table.Entries[i].Data), "entry %d", i)
		if len(f.Data) > 0 {
			assert.Equal(t, f.Data, table.Entries[i].Data, "entry %d", i)
		}
	}
	assert.True(t, table.Entries[0].Named)
	assert.False(t, table.Entries[3].Named)
	assert.Equal(t, uint32(0x1A2B3C4D), table.Entries[3].Hash)
}

func TestDecode_ByteOrdersAgree(t *testing.T) {
	t.Parallel()

	be := testutil.Builder{Order: binary.BigEndian, Files: sampleFiles()}.Build()
	le := testutil.Builder{Order: binary.LittleEndian, Files: sampleFiles()}.Build()
	require.NotEqual(t, be, le)
	assert.Equal(t, []byte{0xFE, 0xFF}, be[6:8])
	assert.Equal(t, []byte{0xFF, 0xFE}, le[6:8])

	beTable := decode(t, be)
	leTable := decode(t, le)

	assert.Equal(t, binary.LittleEndian, leTable.ByteOrder)
	assert.Equal(t, asMap(beTable), asMap(leTable))
	assert.Equal(t, beTable.Index, leTable.Index)
}

func TestDecode_UnnamedEntry(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Files: []testutil.File{
		{Unnamed: true, Hash: 0x1A2B3C4D, Data: []byte("x")},
		{Unnamed: true, Hash: 0x0000000F, Data: []byte("y")},
	}}.Build()
	table := decode(t, image)

	m := asMap(table)
	assert.Equal(t, []byte("x"), m["1A2B3C4D.bin"])
	assert.Equal(t, []byte("y"), m["0000000F.bin"])
}

func TestDecode_DuplicateNamesLastWriteWins(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Files: []testutil.File{
		{Name: "a.txt", Data: []byte("first")},
		{Name: "b.txt", Data: []byte("middle")},
		{Name: "a.txt", Data: []byte("second")},
	}}.Build()
	table := decode(t, image)

	require.Len(t, table.Entries, 2)
	assert.Equal(t, "a.txt", table.Entries[0].Name)
	assert.Equal(t, []byte("second"), table.Entries[0].Data)
	assert.Equal(t, "b.txt", table.Entries[1].Name)
	assert.Equal(t, 0, table.Index["a.txt"])
}

func TestDecode_ZeroNodes(t *testing.T) {
	t.Parallel()

	table := decode(t, testutil.Builder{}.Build())
	assert.Empty(t, table.Entries)
	assert.Empty(t, table.Index)
}

func TestDecode_RelativeToStreamPosition(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Files: sampleFiles()}.Build()
	prefixed := append([]byte("junkjunk"), image...)

	r := bytes.NewReader(prefixed)
	_, err := r.Seek(8, io.SeekStart)
	require.NoError(t, err)

	table, err := container.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, asMap(decode(t, image)), asMap(table))
}

func TestDecode_VerifyHashes(t *testing.T) {
	t.Parallel()

	good := testutil.Builder{Files: sampleFiles()}.Build()
	_, err := container.Decode(bytes.NewReader(good), container.WithVerifyHashes(true))
	require.NoError(t, err)

	bad := testutil.Builder{Files: []testutil.File{
		{Name: "a.txt", Hash: 0xDEADBEEF, Data: []byte("a")},
	}}.Build()
	_, err = container.Decode(bytes.NewReader(bad))
	require.NoError(t, err, "hashes are not checked by default")

	_, err = container.Decode(bytes.NewReader(bad), container.WithVerifyHashes(true))
	require.ErrorIs(t, err, sarctype.ErrHashMismatch)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	files := []testutil.File{
		{Name: "a.txt", Data: []byte("aaaa")},
		{Name: "b.txt", Data: []byte("bbbb")},
	}
	base := func() []byte {
		return testutil.Builder{Files: files}.Build()
	}

	tests := []struct {
		name      string
		image     func() []byte
		wantErr   error
		wantField string
	}{
		{
			name: "bad magic",
			image: func() []byte {
				b := base()
				copy(b, "CRAS")
				return b
			},
			wantErr:   sarctype.ErrBadMagic,
			wantField: "magic",
		},
		{
			name:    "too short",
			image:   func() []byte { return []byte("SA") },
			wantErr: sarctype.ErrBadMagic,
		},
		{
			name: "declared length larger than stream",
			image: func() []byte {
				b := base()
				return b[:len(b)-4]
			},
			wantErr:   sarctype.ErrLengthMismatch,
			wantField: "file_length",
		},
		{
			name: "unsupported version",
			image: func() []byte {
				b := base()
				binary.BigEndian.PutUint16(b[testutil.VersionField:], 0x0200)
				return b
			},
			wantErr:   sarctype.ErrUnsupportedVersion,
			wantField: "version",
		},
		{
			name: "missing SFAT",
			image: func() []byte {
				b := base()
				copy(b[testutil.SFATOffset:], "XFAT")
				return b
			},
			wantErr:   sarctype.ErrMissingSFAT,
			wantField: "sfat_magic",
		},
		{
			name: "missing SFNT",
			image: func() []byte {
				b := base()
				copy(b[testutil.SFNTOffset(len(files)):], "XFNT")
				return b
			},
			wantErr:   sarctype.ErrMissingSFNT,
			wantField: "sfnt_magic",
		},
		{
			name: "data end before begin",
			image: func() []byte {
				b := base()
				node := testutil.NodeOffset(1)
				begin := binary.BigEndian.Uint32(b[node+8:])
				binary.BigEndian.PutUint32(b[node+12:], begin-1)
				return b
			},
			wantErr:   sarctype.ErrLengthMismatch,
			wantField: "node[1].data_end",
		},
		{
			name: "data window past end",
			image: func() []byte {
				b := base()
				binary.BigEndian.PutUint32(b[testutil.NodeOffset(0)+12:], 0x10000)
				return b
			},
			wantErr:   sarctype.ErrLengthMismatch,
			wantField: "node[0].data_end",
		},
		{
			name: "name offset outside container",
			image: func() []byte {
				b := base()
				binary.BigEndian.PutUint32(b[testutil.NodeOffset(1)+4:], 0x0100FFFF)
				return b
			},
			wantErr:   sarctype.ErrTruncated,
			wantField: "node[1].name",
		},
		{
			name: "node count past end",
			image: func() []byte {
				b := base()
				binary.BigEndian.PutUint16(b[testutil.SFATOffset+6:], 0xFFFF)
				return b
			},
			wantErr:   sarctype.ErrTruncated,
			wantField: "node_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table, err := container.Decode(bytes.NewReader(tt.image()))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, table)

			if tt.wantField != "" {
				var fe *sarctype.FormatError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.wantField, fe.Field)
			}
		})
	}
}

func TestDecode_FormatErrorOffsets(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Order: binary.LittleEndian}.Build()
	binary.LittleEndian.PutUint16(image[testutil.VersionField:], 0x0200)

	_, err := container.Decode(bytes.NewReader(image))
	var fe *sarctype.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(testutil.VersionField), fe.Offset)
	assert.Equal(t, "0x0200", fe.Detail)
	assert.Contains(t, err.Error(), "unsupported version")
}
