// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

// Package vacuum implements concurrent page reclamation for a disk-resident
// GiST-style index.
//
// A run has up to three parts. Phase 1 walks every page in ascending block
// order, removes entries the caller's DeleteChecker marks dead, and records
// internal pages and newly empty leaves in two block sets. Phase 2 revisits
// the recorded internal pages, re-validates that their empty-looking
// children are still empty and unsplit, removes the downlinks and marks the
// leaves deleted under a transaction-id horizon. Cleanup finalizes the
// statistics and sweeps the free-space map.
//
// The engine runs single-threaded in one backend while other backends keep
// inserting, splitting and reading. Every on-disk mutation is applied as
// one page-local, WAL-logged step, so cancellation and crashes never leave
// a page half-mutated.
package vacuum

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/x4m/gistvac"
)

type BlockNumber = gistvac.BlockNumber
type LSN = gistvac.LSN
type TxID = gistvac.TxID

// rootBlock is never recorded free and never deleted.
const rootBlock BlockNumber = 0

// Info carries the collaborators and knobs of one vacuum invocation.
type Info struct {
	Store  gistvac.PageStore
	Log    gistvac.LogWriter
	Oracle gistvac.TxOracle
	FSM    gistvac.FreeSpaceMap
	Logger *zap.Logger

	// NumHeapTuples is the caller's estimate of live rows in the indexed
	// table, used to clamp the reported live-entry count.
	NumHeapTuples float64

	// EstimatedCount marks NumHeapTuples as an estimate rather than an
	// exact count.
	EstimatedCount bool

	// AnalyzeOnly requests statistics collection with no vacuuming at
	// all; Cleanup becomes a no-op.
	AnalyzeOnly bool

	// Ctx is checked between pages; a nil context disables cancellation.
	Ctx context.Context

	Cost CostConfig
}

func (info *Info) logger() *zap.Logger {
	if info.Logger == nil {
		return zap.NewNop()
	}
	return info.Logger
}

func (info *Info) ctx() context.Context {
	if info.Ctx == nil {
		return context.Background()
	}
	return info.Ctx
}

// CostConfig paces the scan. A zero Delay disables throttling.
type CostConfig struct {
	// Limit is the cost balance that triggers a pause.
	Limit int `mapstructure:"cost_limit"`

	// Delay is how long to sleep once Limit is reached.
	Delay time.Duration `mapstructure:"cost_delay"`

	// PageCost is charged per page visited.
	PageCost int `mapstructure:"page_cost"`
}

// DefaultCostConfig matches the usual vacuum pacing defaults, with
// throttling disabled.
func DefaultCostConfig() CostConfig {
	return CostConfig{Limit: 200, PageCost: 10}
}

// Stats is the running statistics of one vacuum run.
type Stats struct {
	// EstimatedCount marks NumIndexTuples as an estimate.
	EstimatedCount bool

	// NumIndexTuples is the number of live entries remaining.
	NumIndexTuples float64

	// TuplesRemoved counts entries deleted by this run.
	TuplesRemoved float64

	// NumPages is the total page count at the end of the run.
	NumPages BlockNumber

	// PagesDeleted counts leaves retired by phase 2.
	PagesDeleted BlockNumber

	// PagesFree counts pages recorded recyclable.
	PagesFree BlockNumber
}

// BulkDelete removes every entry whose heap row the checker reports dead,
// then reclaims leaves that became empty. Tuples are recounted exactly.
func BulkDelete(info *Info, stats *Stats, checker gistvac.DeleteChecker) (*Stats, error) {
	if stats == nil {
		stats = new(Stats)
	}
	s := newScanState(info, stats, checker)
	defer s.free()

	if err := s.scan(); err != nil {
		return nil, err
	}
	if s.emptyPages > 0 {
		if err := s.reclaim(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// Cleanup finalizes a vacuum run. When BulkDelete was never invoked, stats
// is nil and a statistics-only scan populates the counts first. The
// free-space map is swept whenever the run found recyclable or deleted
// pages.
func Cleanup(info *Info, stats *Stats) (*Stats, error) {
	if info.AnalyzeOnly {
		return stats, nil
	}

	if stats == nil {
		stats = &Stats{
			EstimatedCount: info.EstimatedCount,
			NumIndexTuples: info.NumHeapTuples,
		}
		s := newScanState(info, stats, nil)
		defer s.free()
		if err := s.scan(); err != nil {
			return nil, err
		}
	}

	if stats.PagesFree > 0 || stats.PagesDeleted > 0 {
		info.FSM.Vacuum()
	}

	npages, err := info.Store.NumBlocks()
	if err != nil {
		return nil, err
	}
	stats.NumPages = npages

	// Concurrent splits can make a re-entrant scan count entries twice;
	// never report more live entries than the table holds rows.
	if !info.EstimatedCount && stats.NumIndexTuples > info.NumHeapTuples {
		stats.NumIndexTuples = info.NumHeapTuples
	}
	return stats, nil
}
