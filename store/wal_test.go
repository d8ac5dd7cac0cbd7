// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x4m/gistvac"
)

func TestLogLSNAdvances(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)
	require.Equal(t, LSN(0), l.Current())

	lsn1, err := l.AppendUpdate(4, []uint16{1, 2})
	require.NoError(t, err)
	lsn2, err := l.AppendDelete(0, []uint16{3}, []BlockNumber{4}, 42)
	require.NoError(t, err)

	require.Less(t, LSN(0), lsn1)
	require.Less(t, lsn1, lsn2)
	require.Equal(t, lsn2, l.Current())

	// LSN is the byte position after the record
	require.Equal(t, LSN(buf.Len()), lsn2)
}

func TestLogNilWriter(t *testing.T) {
	l := NewLog(nil)
	lsn1, err := l.AppendUpdate(1, nil)
	require.NoError(t, err)
	lsn2, err := l.AppendUpdate(1, nil)
	require.NoError(t, err)
	require.Less(t, lsn1, lsn2)
}

func TestRecordChecksum(t *testing.T) {
	rec := encodeRecord(recDelete, 3, []uint16{1, 5}, []BlockNumber{8, 9}, 17)
	require.Equal(t, uint32(len(rec)), binary.LittleEndian.Uint32(rec))
	require.NoError(t, verifyRecord(rec))

	rec[9] ^= 0xff
	require.ErrorIs(t, verifyRecord(rec), gistvac.ErrBadChecksum)

	require.ErrorIs(t, verifyRecord(rec[:5]), gistvac.ErrFileTruncated)
}

func TestFakeLSN(t *testing.T) {
	var f FakeLSN
	require.Equal(t, LSN(0), f.Current())
	lsn, err := f.AppendUpdate(1, nil)
	require.NoError(t, err)
	require.Equal(t, LSN(1), lsn)
	lsn, err = f.AppendDelete(0, nil, nil, 0)
	require.NoError(t, err)
	require.Equal(t, LSN(2), lsn)
	require.Equal(t, LSN(2), f.Current())
}

func TestSequenceOracle(t *testing.T) {
	var o SequenceOracle
	require.Equal(t, TxID(0), o.Last())
	a, b := o.Next(), o.Next()
	require.Less(t, a, b)
	require.Equal(t, b, o.Last())
}
