package sarc_test

import (
	"encoding/binary"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sarc"
	"github.com/meigma/sarc/internal/testutil"
)

func TestArchive_FS(t *testing.T) {
	t.Parallel()

	a, err := sarc.Decode(sampleImage(binary.BigEndian))
	require.NoError(t, err)

	require.NoError(t, fstest.TestFS(a, "Layout/main.bflyt", "Timg/icon.bflim", "Timg/bg.bflim", "README"))
}

func TestArchive_ReadDir(t *testing.T) {
	t.Parallel()

	a, err := sarc.Decode(sampleImage(binary.LittleEndian))
	require.NoError(t, err)

	root, err := fs.ReadDir(a, ".")
	require.NoError(t, err)
	var names []string
	for _, e := range root {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"Layout", "README", "Timg"}, names)
	assert.True(t, root[0].IsDir())
	assert.False(t, root[1].IsDir())

	timg, err := fs.ReadDir(a, "Timg")
	require.NoError(t, err)
	require.Len(t, timg, 2)
	assert.Equal(t, "bg.bflim", timg[0].Name())
	info, err := timg[1].Info()
	require.NoError(t, err)
	assert.Equal(t, int64(300), info.Size())

	_, err = fs.ReadDir(a, "Nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_OpenAndStat(t *testing.T) {
	t.Parallel()

	a, err := sarc.Decode(sampleImage(binary.BigEndian))
	require.NoError(t, err)

	f, err := a.Open("Layout/main.bflyt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, []byte("layout data"), data)

	info, err := a.Stat("Timg")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "Timg", info.Name())

	info, err = a.Stat("README")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
	assert.Equal(t, fs.FileMode(0o444), info.Mode())

	_, err = a.Open("../escape")
	assert.ErrorIs(t, err, fs.ErrInvalid)
	_, err = a.Stat("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_FSSkipsInvalidPaths(t *testing.T) {
	t.Parallel()

	image := testutil.Builder{Files: []testutil.File{
		{Name: "/abs/path.bin", Data: []byte("abs")},
		{Name: "ok.bin", Data: []byte("ok")},
	}}.Build()
	a, err := sarc.Decode(image)
	require.NoError(t, err)

	got, err := a.Lookup("/abs/path.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("abs"), got)

	entries, err := fs.ReadDir(a, ".")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.bin", entries[0].Name())

	_, err = fs.ReadFile(a, "/abs/path.bin")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestArchive_EmptyFS(t *testing.T) {
	t.Parallel()

	a, err := sarc.Decode(testutil.Builder{}.Build())
	require.NoError(t, err)

	entries, err := fs.ReadDir(a, ".")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
