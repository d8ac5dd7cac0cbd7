package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x4m/gistvac"
)

func newLeaf(t *testing.T, size, entries int) Page {
	t.Helper()
	p := Init(make([]byte, size), Leaf)
	for i := 0; i < entries; i++ {
		ptr := HeapPointer{Block: BlockNumber(100 + i), Offset: uint16(i + 1)}
		require.NoError(t, p.AppendLeaf(ptr, []byte{'k', byte(i)}))
	}
	return p
}

func TestNewPage(t *testing.T) {
	p := Page(make([]byte, 512))
	require.True(t, p.IsNew())
	require.False(t, p.IsLeaf())
	require.False(t, p.IsDeleted())
	require.EqualValues(t, 0, p.Count())
}

func TestInitFlags(t *testing.T) {
	p := Init(make([]byte, 512), Internal)
	require.False(t, p.IsNew())
	require.False(t, p.IsLeaf())
	require.Equal(t, gistvac.InvalidBlock, p.RightLink())

	p.SetFollowRight(true)
	require.True(t, p.FollowRight())
	p.SetFollowRight(false)
	require.False(t, p.FollowRight())

	p.SetDeleted(77)
	require.True(t, p.IsDeleted())
	require.EqualValues(t, 77, p.DeleteXID())
}

func TestLeafEntries(t *testing.T) {
	p := newLeaf(t, 512, 5)
	require.EqualValues(t, 5, p.Count())

	for i := uint16(0); i < 5; i++ {
		require.Equal(t, HeapPointer{Block: BlockNumber(100 + i), Offset: i + 1}, p.HeapPtr(i))
		require.Equal(t, []byte{'k', byte(i)}, p.Key(i))
	}
}

func TestMultiDeleteCompacts(t *testing.T) {
	p := newLeaf(t, 512, 6)
	before := p.FreeSpace()

	p.Delete([]uint16{0, 2, 5})

	require.EqualValues(t, 3, p.Count())
	require.Equal(t, HeapPointer{Block: 101, Offset: 2}, p.HeapPtr(0))
	require.Equal(t, HeapPointer{Block: 103, Offset: 4}, p.HeapPtr(1))
	require.Equal(t, HeapPointer{Block: 104, Offset: 5}, p.HeapPtr(2))
	require.Equal(t, []byte{'k', 1}, p.Key(0))
	require.Equal(t, []byte{'k', 3}, p.Key(1))
	require.Equal(t, []byte{'k', 4}, p.Key(2))
	require.Greater(t, p.FreeSpace(), before)
}

func TestDeleteAll(t *testing.T) {
	p := newLeaf(t, 512, 3)
	p.Delete([]uint16{0, 1, 2})
	require.EqualValues(t, 0, p.Count())
	require.True(t, p.IsLeaf())
}

func TestDownlinks(t *testing.T) {
	p := Init(make([]byte, 512), Internal)
	require.NoError(t, p.AppendDownlink(7, []byte("a")))
	require.NoError(t, p.AppendDownlink(9, []byte("b")))

	require.Equal(t, BlockNumber(7), p.Downlink(0))
	require.Equal(t, BlockNumber(9), p.Downlink(1))
	require.False(t, p.DownlinkInvalid(0))

	p.MarkDownlinkInvalid(1)
	require.True(t, p.DownlinkInvalid(1))
	require.False(t, p.DownlinkInvalid(0))
	require.Equal(t, BlockNumber(9), p.Downlink(1))
}

func TestAppendFull(t *testing.T) {
	p := Init(make([]byte, 64), Leaf)
	var err error
	for err == nil {
		err = p.AppendLeaf(HeapPointer{Block: 1, Offset: 1}, []byte("key"))
	}
	require.ErrorIs(t, err, gistvac.ErrPageFull)
	require.Positive(t, p.Count())
}

func TestSplitMarkers(t *testing.T) {
	p := Init(make([]byte, 512), Leaf)
	p.SetNSN(42)
	p.SetLSN(43)
	p.SetRightLink(3)

	require.EqualValues(t, 42, p.NSN())
	require.EqualValues(t, 43, p.LSN())
	require.Equal(t, BlockNumber(3), p.RightLink())
	require.False(t, p.IsNew())
}
