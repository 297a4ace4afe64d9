package addrspace

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferSpaceReadAt(t *testing.T) {
	space := NewBuffer("test", []byte{0xde, 0xad, 0xbe, 0xef})

	buf := make([]byte, 2)
	n, err := space.ReadAt(buf, 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{0xad, 0xbe}, buf)

	_, err = space.ReadAt(buf, 10)
	require.ErrorIs(t, err, io.EOF)

	short := make([]byte, 8)
	n, err = space.ReadAt(short, 2)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
}

func TestVirtualSpaceTranslatesThroughDTB(t *testing.T) {
	base := NewBuffer("phys", []byte{1, 2, 3, 4, 5, 6, 7, 8})
	virt := NewVirtual(base, 0x1000)

	buf := make([]byte, 2)
	n, err := virt.ReadAt(buf, 0x1002)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{3, 4}, buf)

	_, err = virt.ReadAt(buf, 0x10)
	require.Error(t, err)

	require.Equal(t, uint64(0x1000), virt.DTB())
	require.Same(t, base, virt.Base())
}

func TestOpenFileReportsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.raw")
	require.NoError(t, os.WriteFile(path, []byte("capture"), 0o644))

	space, err := OpenFile(path)
	require.NoError(t, err)
	defer space.Close()

	require.Equal(t, int64(7), space.Size())
	require.Equal(t, path, space.Name())

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.raw"))
	require.Error(t, err)
}
