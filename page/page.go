// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

// Package page gives structured access to raw index page images.
package page

import (
	"encoding/binary"

	"github.com/x4m/gistvac"
)

type BlockNumber = gistvac.BlockNumber
type HeapPointer = gistvac.HeapPointer
type LSN = gistvac.LSN
type TxID = gistvac.TxID

// Page is a fixed-size index page.
// Use LittleEndian encoding.
//
// Layout:
//
//	byte[0:2]   flags
//	byte[2:4]   item count
//	byte[4:8]   right-link block number
//	byte[8:16]  NSN (split-generation marker)
//	byte[16:24] LSN of the last record that touched the page
//	byte[24:32] deletion horizon TxID (valid when Deleted is set)
//	byte[32:32+count*2] item offsets, ascending
//	items packed from the page tail downward
//
// An all-zero image is a "new" page: never initialized, flags == 0.
type Page []byte

// HeadSize is the fixed page header size in bytes.
const HeadSize = 32

// Flags describe the page kind and split/deletion state.
type Flags uint16

const (
	// Leaf pages hold indexed entries; Internal pages hold downlinks.
	Leaf Flags = 1 << iota
	Internal

	// Deleted marks a reclaimed, inert page.
	Deleted

	// FollowRight marks the left half of a split until the parent's
	// downlink set has been repaired.
	FollowRight
)

// ItemHeadSize is the fixed per-item header: a block number plus either a
// heap offset (leaf) or item flags (downlink).
const ItemHeadSize = 6

// downlink item flag left by an incomplete historical split format
const itemInvalid uint16 = 1 << 0

// Init formats buf as an empty page of the given kind.
func Init(buf []byte, flags Flags) Page {
	clear(buf)
	p := Page(buf)
	p.setFlags(flags)
	p.SetRightLink(gistvac.InvalidBlock)
	return p
}

func (p Page) Flags() Flags {
	return Flags(binary.LittleEndian.Uint16(p))
}

func (p Page) setFlags(flags Flags) {
	binary.LittleEndian.PutUint16(p, uint16(flags))
}

// IsNew reports whether the page was never initialized.
func (p Page) IsNew() bool {
	return p.Flags() == 0
}

func (p Page) IsLeaf() bool {
	return p.Flags()&Leaf != 0
}

func (p Page) IsDeleted() bool {
	return p.Flags()&Deleted != 0
}

func (p Page) FollowRight() bool {
	return p.Flags()&FollowRight != 0
}

func (p Page) SetFollowRight(v bool) {
	if v {
		p.setFlags(p.Flags() | FollowRight)
	} else {
		p.setFlags(p.Flags() &^ FollowRight)
	}
}

// SetDeleted marks the page deleted and stamps the deletion horizon.
func (p Page) SetDeleted(horizon TxID) {
	p.setFlags(p.Flags() | Deleted)
	binary.LittleEndian.PutUint64(p[24:], uint64(horizon))
}

// DeleteXID returns the deletion horizon of a deleted page.
func (p Page) DeleteXID() TxID {
	return TxID(binary.LittleEndian.Uint64(p[24:]))
}

func (p Page) Count() uint16 {
	return binary.LittleEndian.Uint16(p[2:])
}

func (p Page) setCount(n uint16) {
	binary.LittleEndian.PutUint16(p[2:], n)
}

func (p Page) RightLink() BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint32(p[4:]))
}

func (p Page) SetRightLink(blkno BlockNumber) {
	binary.LittleEndian.PutUint32(p[4:], uint32(blkno))
}

// NSN returns the split-generation marker: the LSN stamped when the page
// was last the left half of a split.
func (p Page) NSN() LSN {
	return LSN(binary.LittleEndian.Uint64(p[8:]))
}

func (p Page) SetNSN(nsn LSN) {
	binary.LittleEndian.PutUint64(p[8:], uint64(nsn))
}

func (p Page) LSN() LSN {
	return LSN(binary.LittleEndian.Uint64(p[16:]))
}

func (p Page) SetLSN(lsn LSN) {
	binary.LittleEndian.PutUint64(p[16:], uint64(lsn))
}

func (p Page) offset(index uint16) int {
	return int(binary.LittleEndian.Uint16(p[HeadSize+2*index:]))
}

// item returns the raw bytes of item index: 6-byte head plus key.
func (p Page) item(index uint16) []byte {
	beg := p.offset(index)
	end := len(p)
	if index > 0 {
		end = p.offset(index - 1)
	}
	return p[beg:end]
}

// HeapPtr returns the heap row reference of a leaf entry.
// Only call this on leaf pages.
func (p Page) HeapPtr(index uint16) HeapPointer {
	item := p.item(index)
	return HeapPointer{
		Block:  BlockNumber(binary.LittleEndian.Uint32(item)),
		Offset: binary.LittleEndian.Uint16(item[4:]),
	}
}

// Downlink returns the child block number of a downlink entry.
// Only call this on internal pages.
func (p Page) Downlink(index uint16) BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint32(p.item(index)))
}

// DownlinkInvalid reports whether the downlink carries the marker left by an
// incomplete pre-upgrade split. Such entries are warned about, never fixed.
func (p Page) DownlinkInvalid(index uint16) bool {
	return binary.LittleEndian.Uint16(p.item(index)[4:])&itemInvalid != 0
}

// MarkDownlinkInvalid stamps the historical-corruption marker on a downlink.
func (p Page) MarkDownlinkInvalid(index uint16) {
	item := p.item(index)
	flags := binary.LittleEndian.Uint16(item[4:])
	binary.LittleEndian.PutUint16(item[4:], flags|itemInvalid)
}

// Key returns the key bytes of an entry.
func (p Page) Key(index uint16) []byte {
	return p.item(index)[ItemHeadSize:]
}

// FreeSpace returns the bytes available between the offset array and the
// lowest item.
func (p Page) FreeSpace() int {
	n := p.Count()
	low := len(p)
	if n > 0 {
		low = p.offset(n - 1)
	}
	return low - (HeadSize + 2*int(n))
}

// AppendLeaf adds a leaf entry holding the heap pointer and key.
func (p Page) AppendLeaf(ptr HeapPointer, key []byte) error {
	var head [ItemHeadSize]byte
	binary.LittleEndian.PutUint32(head[:], uint32(ptr.Block))
	binary.LittleEndian.PutUint16(head[4:], ptr.Offset)
	return p.append(head, key)
}

// AppendDownlink adds a downlink entry pointing at the child block.
func (p Page) AppendDownlink(child BlockNumber, key []byte) error {
	var head [ItemHeadSize]byte
	binary.LittleEndian.PutUint32(head[:], uint32(child))
	return p.append(head, key)
}

func (p Page) append(head [ItemHeadSize]byte, key []byte) error {
	size := ItemHeadSize + len(key)
	// a new item costs one offset slot at the front plus the item at the back
	if p.FreeSpace() < 2+size {
		return gistvac.ErrPageFull
	}

	n := p.Count()
	end := len(p)
	if n > 0 {
		end = p.offset(n - 1)
	}
	beg := end - size
	copy(p[beg:], head[:])
	copy(p[beg+ItemHeadSize:], key)
	binary.LittleEndian.PutUint16(p[HeadSize+2*n:], uint16(beg))
	p.setCount(n + 1)
	return nil
}

// Delete removes the items at the given ascending indexes in one step,
// compacting the survivors. Mirrors a multi-delete that is WAL-logged as a
// single record.
func (p Page) Delete(indexes []uint16) {
	if len(indexes) == 0 {
		return
	}

	n := p.Count()
	survivors := make([][]byte, 0, int(n)-len(indexes))
	next := 0
	for i := uint16(0); i < n; i++ {
		if next < len(indexes) && indexes[next] == i {
			next++
			continue
		}
		item := make([]byte, len(p.item(i)))
		copy(item, p.item(i))
		survivors = append(survivors, item)
	}

	clear(p[HeadSize:])
	p.setCount(0)
	for _, item := range survivors {
		var head [ItemHeadSize]byte
		copy(head[:], item[:ItemHeadSize])
		// survivors came off this page, so re-append cannot fail
		_ = p.append(head, item[ItemHeadSize:])
	}
}
