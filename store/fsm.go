// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"slices"
	"sync"

	"github.com/x4m/gistvac"
)

// FSM is the free-space map: it remembers blocks reported recyclable by
// vacuum and hands them back to future splits. Storage is a linked queue of
// ring buffers that doubles node capacity as it grows.
type FSM struct {
	mu         sync.Mutex
	head, tail *fnode
	length     int
}

var _ gistvac.FreeSpaceMap = (*FSM)(nil)

// RecordFree reports a recyclable block.
func (f *FSM) RecordFree(blkno BlockNumber) {
	f.mu.Lock()
	f.push(blkno)
	f.length++
	f.mu.Unlock()
}

// Pop returns a recyclable block for reuse, or InvalidBlock when none is
// known.
func (f *FSM) Pop() BlockNumber {
	f.mu.Lock()
	defer f.mu.Unlock()
	blkno, ok := f.shift()
	if !ok {
		return gistvac.InvalidBlock
	}
	f.length--
	return blkno
}

// Len returns the number of recorded blocks.
func (f *FSM) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.length
}

// Vacuum is the map-wide consistency sweep: duplicates accumulated across
// re-entrant runs are dropped and the remaining blocks re-packed in
// ascending order.
func (f *FSM) Vacuum() {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]BlockNumber, 0, f.length)
	for {
		blkno, ok := f.shift()
		if !ok {
			break
		}
		all = append(all, blkno)
	}
	slices.Sort(all)
	all = slices.Compact(all)

	f.head, f.tail = nil, nil
	f.length = len(all)
	for _, blkno := range all {
		f.push(blkno)
	}
}

type fnode struct {
	buffer     []BlockNumber
	capacity   uint16
	length     uint16
	head, tail uint16
	next       *fnode
}

func node(capacity uint16) *fnode {
	return &fnode{
		capacity: capacity,
		buffer:   make([]BlockNumber, capacity),
	}
}

func (n *fnode) push(blkno BlockNumber) bool {
	if n.length == n.capacity {
		return false
	}
	n.buffer[n.tail] = blkno
	n.tail = (n.tail + 1) % n.capacity
	n.length++
	return true
}

func (n *fnode) shift() (blkno BlockNumber, ok bool) {
	if n.length == 0 {
		return
	}
	blkno = n.buffer[n.head]
	n.head = (n.head + 1) % n.capacity
	n.length--
	return blkno, true
}

func (f *FSM) push(blkno BlockNumber) {
	if f.tail == nil {
		f.tail = node(4)
		f.head = f.tail
	}
	if !f.tail.push(blkno) {
		tail := node(min(f.tail.capacity*2, 1024))
		f.tail.next = tail
		f.tail = tail
		f.tail.push(blkno)
	}
}

func (f *FSM) shift() (blkno BlockNumber, ok bool) {
	for f.head != nil {
		if blkno, ok = f.head.shift(); ok {
			return
		}
		f.head.buffer = nil
		f.head = f.head.next
	}
	f.tail = nil
	return 0, false
}
