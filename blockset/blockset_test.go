package blockset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"
)

func TestEmptySet(t *testing.T) {
	var bs *BlockSet

	require.False(t, bs.Get(0))
	require.False(t, bs.Get(math.MaxUint32-1))
	require.Equal(t, None, bs.Next(None))
	require.Equal(t, None, bs.Next(0))
}

func TestSparseMembers(t *testing.T) {
	members := []BlockNumber{0, 1, 255, 256, 65535, 65536, 1 << 24, math.MaxUint32 - 1}

	var bs *BlockSet
	for _, blkno := range members {
		bs = Set(bs, blkno)
	}
	// setting twice is a no-op
	bs = Set(bs, 256)

	for _, blkno := range members {
		require.True(t, bs.Get(blkno), "member %d", blkno)
	}
	require.False(t, bs.Get(2))
	require.False(t, bs.Get(257))
	require.False(t, bs.Get(1<<24+1))

	// Next enumerates every member in ascending order exactly once.
	blkno := None
	for _, want := range members {
		blkno = bs.Next(blkno)
		require.Equal(t, want, blkno)
	}
	require.Equal(t, None, bs.Next(blkno))
}

func TestNextSkipsEmptyRegions(t *testing.T) {
	var bs *BlockSet
	// members straddling radix node boundaries with large gaps between
	bs = Set(bs, 5*256+200)
	bs = Set(bs, 9*65536+3)

	require.Equal(t, BlockNumber(5*256+200), bs.Next(None))
	require.Equal(t, BlockNumber(9*65536+3), bs.Next(5*256+200))
	require.Equal(t, None, bs.Next(9*65536+3))
}

// Behavior must match a reference bitmap for random inserts, the way the
// original structure was validated against Bitmapset.
func TestRoaringCompliance(t *testing.T) {
	for _, limit := range []int{0, 1, 2, 1337, 100000} {
		var bs *BlockSet
		ref := roaring.New()

		for i := 0; i < limit; i++ {
			blkno := uint32(rand.Int31n(math.MaxInt32))
			bs = Set(bs, BlockNumber(blkno))
			ref.Add(blkno)
		}

		it := ref.Iterator()
		blkno := None
		for it.HasNext() {
			want := it.Next()
			blkno = bs.Next(blkno)
			require.Equal(t, BlockNumber(want), blkno, "limit %d", limit)
			require.True(t, bs.Get(blkno))
		}
		require.Equal(t, None, bs.Next(blkno), "limit %d", limit)

		for i := 0; i < limit; i++ {
			probe := uint32(rand.Int31n(math.MaxInt32))
			require.Equal(t, ref.Contains(probe), bs.Get(BlockNumber(probe)))
		}

		bs.Free()
	}
}

// Same as above but with members shifted beyond the int32 range.
func TestRoaringComplianceBigBlockNumbers(t *testing.T) {
	for _, limit := range []int{1337, 31337} {
		var bs *BlockSet
		ref := roaring.New()

		for i := 0; i < limit; i++ {
			blkno := uint32(rand.Int31n(math.MaxInt32)) << 1
			bs = Set(bs, BlockNumber(blkno))
			ref.Add(blkno)
		}

		it := ref.Iterator()
		blkno := None
		for it.HasNext() {
			want := it.Next()
			blkno = bs.Next(blkno)
			require.Equal(t, BlockNumber(want), blkno, "limit %d", limit)
			require.True(t, bs.Get(blkno))
		}
		require.Equal(t, None, bs.Next(blkno), "limit %d", limit)
	}
}

func TestFree(t *testing.T) {
	var bs *BlockSet
	bs = Set(bs, 42)
	bs.Free()
	require.False(t, bs.Get(42))
	require.Equal(t, None, bs.Next(None))
}
