// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"
	"sync/atomic"

	"github.com/x4m/gistvac"
)

var castagnoliCrcTable = crc32.MakeTable(crc32.Castagnoli)

func checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliCrcTable)
}

// Record kinds.
const (
	recUpdate byte = iota + 1
	recDelete
)

// Log is an append-only write-ahead log writer. The LSN is the byte
// position after the appended record, so LSNs strictly increase.
type Log struct {
	mu  sync.Mutex
	w   io.Writer
	lsn LSN
}

var _ gistvac.LogWriter = (*Log)(nil)

// NewLog writes records to w. A nil writer keeps the LSN sequence but
// discards record bytes.
func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

// AppendUpdate logs entry removal from one page.
func (l *Log) AppendUpdate(blkno BlockNumber, removed []uint16) (LSN, error) {
	return l.append(encodeRecord(recUpdate, blkno, removed, nil, 0))
}

// AppendDelete logs downlink removal on the parent together with marking
// the leaves deleted under horizon, as a single record.
func (l *Log) AppendDelete(parent BlockNumber, removed []uint16, leaves []BlockNumber, horizon TxID) (LSN, error) {
	return l.append(encodeRecord(recDelete, parent, removed, leaves, horizon))
}

func (l *Log) Current() LSN {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lsn
}

func (l *Log) append(rec []byte) (LSN, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		if _, err := l.w.Write(rec); err != nil {
			return 0, err
		}
	}
	l.lsn += LSN(len(rec))
	return l.lsn, nil
}

// record: total u32 | kind u8 | block u32 | nremoved u16 | removed u16...
// | nleaves u16 | leaves u32... | horizon u64 | crc u32
func encodeRecord(kind byte, blkno BlockNumber, removed []uint16, leaves []BlockNumber, horizon TxID) []byte {
	total := 4 + 1 + 4 + 2 + 2*len(removed) + 2 + 4*len(leaves) + 8 + 4
	rec := make([]byte, 0, total)

	rec = binary.LittleEndian.AppendUint32(rec, uint32(total))
	rec = append(rec, kind)
	rec = binary.LittleEndian.AppendUint32(rec, uint32(blkno))
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(removed)))
	for _, off := range removed {
		rec = binary.LittleEndian.AppendUint16(rec, off)
	}
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(leaves)))
	for _, leaf := range leaves {
		rec = binary.LittleEndian.AppendUint32(rec, uint32(leaf))
	}
	rec = binary.LittleEndian.AppendUint64(rec, uint64(horizon))
	rec = binary.LittleEndian.AppendUint32(rec, checksum(rec))
	return rec
}

// verifyRecord checks the trailing checksum of one encoded record.
func verifyRecord(rec []byte) error {
	if len(rec) < 8 {
		return gistvac.ErrFileTruncated
	}
	body, sum := rec[:len(rec)-4], binary.LittleEndian.Uint32(rec[len(rec)-4:])
	if checksum(body) != sum {
		return gistvac.ErrBadChecksum
	}
	return nil
}

// FakeLSN substitutes monotonically increasing placeholder markers for
// indexes that do not require durability.
type FakeLSN struct {
	ctr atomic.Uint64
}

var _ gistvac.LogWriter = (*FakeLSN)(nil)

func (f *FakeLSN) AppendUpdate(BlockNumber, []uint16) (LSN, error) {
	return LSN(f.ctr.Add(1)), nil
}

func (f *FakeLSN) AppendDelete(BlockNumber, []uint16, []BlockNumber, TxID) (LSN, error) {
	return LSN(f.ctr.Add(1)), nil
}

func (f *FakeLSN) Current() LSN {
	return LSN(f.ctr.Load())
}

// SequenceOracle hands out monotonically increasing transaction ids. Next
// returns an id newer than every id issued before, which makes it a valid
// deletion-horizon source.
type SequenceOracle struct {
	ctr atomic.Uint64
}

var _ gistvac.TxOracle = (*SequenceOracle)(nil)

func (o *SequenceOracle) Next() TxID {
	return TxID(o.ctr.Add(1))
}

// Last returns the most recently issued id, 0 if none.
func (o *SequenceOracle) Last() TxID {
	return TxID(o.ctr.Load())
}
