// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x4m/gistvac"
)

func TestMMapOpenExtendReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	m, err := OpenMMap(path, 128)
	require.NoError(t, err)
	n, err := m.NumBlocks()
	require.NoError(t, err)
	require.Equal(t, BlockNumber(0), n)

	first, err := m.Extend(2)
	require.NoError(t, err)
	require.Equal(t, BlockNumber(0), first)

	g, err := m.Acquire(1, gistvac.Exclusive)
	require.NoError(t, err)
	g.Bytes()[0] = 0x7f
	g.Release()
	require.NoError(t, m.Close())

	m, err = OpenMMap(path, 128)
	require.NoError(t, err)
	defer m.Close()
	g, err = m.Acquire(1, gistvac.Share)
	require.NoError(t, err)
	require.Equal(t, byte(0x7f), g.Bytes()[0])
	g.Release()
}

func TestMMapWrongPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	m, err := OpenMMap(path, 128)
	require.NoError(t, err)
	_, err = m.Extend(1)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = OpenMMap(path, 96)
	require.ErrorIs(t, err, gistvac.ErrFileTruncated)
}

func TestMMapClosed(t *testing.T) {
	m, err := OpenMMap(filepath.Join(t.TempDir(), "idx"), 128)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = m.Acquire(0, gistvac.Share)
	require.ErrorIs(t, err, gistvac.ErrClosed)
	_, err = m.NumBlocks()
	require.ErrorIs(t, err, gistvac.ErrClosed)
	_, err = m.Extend(1)
	require.ErrorIs(t, err, gistvac.ErrClosed)
}

func TestMMapAcquireParkedAcrossExtend(t *testing.T) {
	m, err := OpenMMap(filepath.Join(t.TempDir(), "idx"), 128)
	require.NoError(t, err)
	defer m.Close()
	_, err = m.Extend(1)
	require.NoError(t, err)

	g1, err := m.Acquire(0, gistvac.Exclusive)
	require.NoError(t, err)

	// This acquire parks on the page lock; the file is remapped underneath
	// it before the lock is granted, so its buffer must come from the new
	// mapping.
	done := make(chan struct{})
	go func() {
		defer close(done)
		g2, err := m.Acquire(0, gistvac.Exclusive)
		require.NoError(t, err)
		g2.Bytes()[0] = 0x5a
		g2.Release()
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = m.Extend(64)
	require.NoError(t, err)
	g1.Release()
	<-done

	g3, err := m.Acquire(0, gistvac.Share)
	require.NoError(t, err)
	defer g3.Release()
	require.Equal(t, byte(0x5a), g3.Bytes()[0])
}
