// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

// Package blockset provides a sparse, insert-only set of block numbers.
//
// The set is a four-level radix tree with 256-way fanout and a bitmap at
// the leaf level. Unlike a flat bitmap over the whole 32-bit block space,
// memory grows with the number of distinct high-order prefixes touched,
// which stays small when scans proceed in large contiguous runs.
package blockset

import (
	"math/bits"

	"github.com/x4m/gistvac"
)

type BlockNumber = gistvac.BlockNumber

// None is returned by Next when no greater member exists. Passing None to
// Next asks for the smallest member overall.
const None = gistvac.InvalidBlock

// Lowest level of the radix tree is a bitmap over 256 blocks.
type level4 struct {
	data [256 / 8]byte
}

type level3 struct {
	// nil references denote empty subtrees
	next [256]*level4
}

type level2 struct {
	next [256]*level3
}

// BlockSet is the radix tree root. A nil *BlockSet is the empty set; Set
// returns the (possibly newly allocated) handle.
type BlockSet struct {
	next [256]*level2
}

// split multiplexes a block number into radix indexes.
func split(blkno BlockNumber) (i1, i2, i3, byteNo int, byteMask byte) {
	i4 := int(blkno % 256)
	blkno /= 256
	i3 = int(blkno % 256)
	blkno /= 256
	i2 = int(blkno % 256)
	blkno /= 256
	i1 = int(blkno)
	byteNo = i4 / 8
	byteMask = 1 << (i4 % 8)
	return
}

// Set marks the block present, allocating only the radix-path nodes not yet
// present. Once inserted a member stays present until the set is freed.
func Set(bs *BlockSet, blkno BlockNumber) *BlockSet {
	i1, i2, i3, byteNo, byteMask := split(blkno)
	if bs == nil {
		bs = new(BlockSet)
	}
	l2 := bs.next[i1]
	if l2 == nil {
		l2 = new(level2)
		bs.next[i1] = l2
	}
	l3 := l2.next[i2]
	if l3 == nil {
		l3 = new(level3)
		l2.next[i2] = l3
	}
	l4 := l3.next[i3]
	if l4 == nil {
		l4 = new(level4)
		l3.next[i3] = l4
	}
	l4.data[byteNo] |= byteMask
	return bs
}

// Get reports whether the block is present. Safe on a nil set.
func (bs *BlockSet) Get(blkno BlockNumber) bool {
	if bs == nil {
		return false
	}
	i1, i2, i3, byteNo, byteMask := split(blkno)
	l2 := bs.next[i1]
	if l2 == nil {
		return false
	}
	l3 := l2.next[i2]
	if l3 == nil {
		return false
	}
	l4 := l3.next[i3]
	if l4 == nil {
		return false
	}
	return l4.data[byteNo]&byteMask != 0
}

// Next returns the smallest present block number strictly greater than
// blkno, or None when the set is exhausted. Given None it returns the
// smallest member overall. Only allocated radix nodes are visited.
func (bs *BlockSet) Next(blkno BlockNumber) BlockNumber {
	if blkno == None {
		blkno = 0
	} else {
		blkno++
	}
	if bs == nil {
		return None
	}

	i1, i2, i3, byteNo, byteMask := split(blkno)
	for ; i1 < 256; i1++ {
		if l2 := bs.next[i1]; l2 != nil {
			for ; i2 < 256; i2++ {
				if l3 := l2.next[i2]; l3 != nil {
					for ; i3 < 256; i3++ {
						if l4 := l3.next[i3]; l4 != nil {
							for ; byteNo < 256/8; byteNo++ {
								if b := l4.data[byteNo] &^ (byteMask - 1); b != 0 {
									i4 := byteNo*8 + bits.TrailingZeros8(b)
									return BlockNumber(i4) +
										256*(BlockNumber(i3)+256*(BlockNumber(i2)+256*BlockNumber(i1)))
								}
								byteMask = 1
							}
						}
						byteNo, byteMask = 0, 1
					}
				}
				i3, byteNo, byteMask = 0, 0, 1
			}
		}
		i2, i3, byteNo, byteMask = 0, 0, 0, 1
	}
	return None
}

// Free releases all radix nodes. The set may not be used afterwards.
func (bs *BlockSet) Free() {
	if bs == nil {
		return
	}
	for i := range bs.next {
		bs.next[i] = nil
	}
}
