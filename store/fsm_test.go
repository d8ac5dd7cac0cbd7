// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x4m/gistvac"
)

func TestFSMEmpty(t *testing.T) {
	var f FSM
	require.Equal(t, 0, f.Len())
	require.Equal(t, gistvac.InvalidBlock, f.Pop())
}

func TestFSMOrder(t *testing.T) {
	var f FSM
	for _, b := range []BlockNumber{7, 3, 9} {
		f.RecordFree(b)
	}
	require.Equal(t, 3, f.Len())
	require.Equal(t, BlockNumber(7), f.Pop())
	require.Equal(t, BlockNumber(3), f.Pop())
	require.Equal(t, BlockNumber(9), f.Pop())
	require.Equal(t, gistvac.InvalidBlock, f.Pop())
}

func TestFSMGrowth(t *testing.T) {
	var f FSM
	const n = 5000 // forces several node expansions up to the 1024 cap
	for i := BlockNumber(0); i < BlockNumber(n); i++ {
		f.RecordFree(i)
	}
	require.Equal(t, n, f.Len())
	for i := BlockNumber(0); i < BlockNumber(n); i++ {
		require.Equal(t, i, f.Pop())
	}
	require.Equal(t, 0, f.Len())
}

func TestFSMVacuum(t *testing.T) {
	var f FSM
	for _, b := range []BlockNumber{9, 3, 9, 7, 3} {
		f.RecordFree(b)
	}

	f.Vacuum()

	require.Equal(t, 3, f.Len())
	require.Equal(t, BlockNumber(3), f.Pop())
	require.Equal(t, BlockNumber(7), f.Pop())
	require.Equal(t, BlockNumber(9), f.Pop())
}

func TestFSMVacuumEmpty(t *testing.T) {
	var f FSM
	f.Vacuum()
	require.Equal(t, 0, f.Len())

	// usable again after the sweep
	f.RecordFree(1)
	require.Equal(t, BlockNumber(1), f.Pop())
}
