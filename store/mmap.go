// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/x4m/gistvac"
	"github.com/x4m/gistvac/internal/sys"
)

// MMap is a page store over a memory-mapped index file. Per-page locks live
// in a table grown alongside the file; the table mutex doubles as the
// extension lock.
//
// Extend remaps the file, so callers must not hold page guards across an
// Extend call: an outstanding guard's buffer points into the old mapping.
// Acquires parked on a page lock while an Extend runs are safe; they slice
// their buffer from the current mapping once the lock is granted.
type MMap struct {
	mu    sync.Mutex
	file  *os.File
	dat   []byte
	locks []*sync.RWMutex
	size  int
}

var _ gistvac.PageStore = (*MMap)(nil)

// OpenMMap opens or creates an index file of fixed-size pages.
func OpenMMap(path string, pageSize int) (*MMap, error) {
	if pageSize < minPageSize {
		return nil, gistvac.ErrPageSize
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open index file")
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "stat index file")
	}
	size := stat.Size()
	if size%int64(pageSize) != 0 {
		file.Close()
		return nil, errors.Wrapf(gistvac.ErrFileTruncated, "file size %d, page size %d", size, pageSize)
	}

	m := &MMap{file: file, size: pageSize}
	if size > 0 {
		if m.dat, err = sys.MMap(file, uint64(size)); err != nil {
			file.Close()
			return nil, errors.Wrap(err, "mmap index file")
		}
	}
	m.locks = make([]*sync.RWMutex, size/int64(pageSize))
	for i := range m.locks {
		m.locks[i] = new(sync.RWMutex)
	}
	return m, nil
}

func (m *MMap) PageSize() int {
	return m.size
}

func (m *MMap) NumBlocks() (BlockNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return 0, gistvac.ErrClosed
	}
	return BlockNumber(len(m.locks)), nil
}

func (m *MMap) Extend(n int) (BlockNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return 0, gistvac.ErrClosed
	}

	first := BlockNumber(len(m.locks))
	newSize := uint64(len(m.locks)+n) * uint64(m.size)
	if err := m.file.Truncate(int64(newSize)); err != nil {
		return 0, errors.Wrap(err, "extend index file")
	}
	dat, err := sys.Remap(m.file, newSize, m.dat)
	if err != nil {
		return 0, errors.Wrap(err, "remap index file")
	}
	m.dat = dat
	for i := 0; i < n; i++ {
		m.locks = append(m.locks, new(sync.RWMutex))
	}
	return first, nil
}

func (m *MMap) Acquire(blkno BlockNumber, mode gistvac.LockMode) (gistvac.PageGuard, error) {
	m.mu.Lock()
	if m.file == nil {
		m.mu.Unlock()
		return nil, gistvac.ErrClosed
	}
	if int(blkno) >= len(m.locks) {
		m.mu.Unlock()
		return nil, gistvac.ErrOutOfRange
	}
	lock := m.locks[blkno]
	m.mu.Unlock()

	if mode == gistvac.Exclusive {
		lock.Lock()
	} else {
		lock.RLock()
	}

	// An Extend may have remapped the file while we waited on the page
	// lock, so the buffer is sliced only now, from the current mapping.
	m.mu.Lock()
	if m.file == nil {
		m.mu.Unlock()
		if mode == gistvac.Exclusive {
			lock.Unlock()
		} else {
			lock.RUnlock()
		}
		return nil, gistvac.ErrClosed
	}
	buf := m.dat[int(blkno)*m.size : (int(blkno)+1)*m.size]
	m.mu.Unlock()

	return &mmapGuard{lock: lock, buf: buf, mode: mode}, nil
}

// Sync flushes the mapping to disk.
func (m *MMap) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return gistvac.ErrClosed
	}
	return sys.MSync(m.dat)
}

func (m *MMap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return gistvac.ErrClosed
	}
	if m.dat != nil {
		if err := sys.MSync(m.dat); err != nil {
			return err
		}
		if err := sys.MUnmap(m.file, m.dat); err != nil {
			return err
		}
		m.dat = nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

type mmapGuard struct {
	lock *sync.RWMutex
	buf  []byte
	mode gistvac.LockMode
}

func (g *mmapGuard) Bytes() []byte {
	return g.buf
}

// MarkDirty is a no-op: the shared mapping is flushed on Sync and Close.
func (g *mmapGuard) MarkDirty() {}

func (g *mmapGuard) Release() {
	if g.mode == gistvac.Exclusive {
		g.lock.Unlock()
	} else {
		g.lock.RUnlock()
	}
	g.lock = nil
	g.buf = nil
}
