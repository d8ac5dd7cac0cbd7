// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

// Package store provides implementations of the page store, write-ahead
// log, transaction-id oracle and free-space map interfaces.
package store

import (
	"sync"

	"github.com/x4m/gistvac"
)

type BlockNumber = gistvac.BlockNumber
type LSN = gistvac.LSN
type TxID = gistvac.TxID

// Memory is an in-process page store backed by plain byte slices, with one
// reader-writer lock per page and a separate extension lock. It is the unit
// test substrate and a reference for the locking contract.
type Memory struct {
	mu    sync.Mutex // extension lock: guards pages length
	pages []*memPage
	size  int
}

type memPage struct {
	lock sync.RWMutex
	buf  []byte
}

var _ gistvac.PageStore = (*Memory)(nil)

func NewMemory(pageSize int) *Memory {
	if pageSize < minPageSize {
		panic(gistvac.ErrPageSize)
	}
	return &Memory{size: pageSize}
}

const minPageSize = 64

func (m *Memory) PageSize() int {
	return m.size
}

func (m *Memory) NumBlocks() (BlockNumber, error) {
	m.mu.Lock()
	n := len(m.pages)
	m.mu.Unlock()
	return BlockNumber(n), nil
}

func (m *Memory) Extend(n int) (BlockNumber, error) {
	m.mu.Lock()
	first := BlockNumber(len(m.pages))
	for i := 0; i < n; i++ {
		m.pages = append(m.pages, &memPage{buf: make([]byte, m.size)})
	}
	m.mu.Unlock()
	return first, nil
}

func (m *Memory) Acquire(blkno BlockNumber, mode gistvac.LockMode) (gistvac.PageGuard, error) {
	m.mu.Lock()
	if int(blkno) >= len(m.pages) {
		m.mu.Unlock()
		return nil, gistvac.ErrOutOfRange
	}
	slot := m.pages[blkno]
	m.mu.Unlock()

	// blocks until any conflicting holder releases; no timeout by design
	if mode == gistvac.Exclusive {
		slot.lock.Lock()
	} else {
		slot.lock.RLock()
	}
	return &memGuard{slot: slot, mode: mode}, nil
}

type memGuard struct {
	slot *memPage
	mode gistvac.LockMode
}

func (g *memGuard) Bytes() []byte {
	return g.slot.buf
}

func (g *memGuard) MarkDirty() {}

func (g *memGuard) Release() {
	if g.mode == gistvac.Exclusive {
		g.slot.lock.Unlock()
	} else {
		g.slot.lock.RUnlock()
	}
	g.slot = nil
}
