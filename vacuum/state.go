// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package vacuum

import (
	"github.com/x4m/gistvac"
	"github.com/x4m/gistvac/blockset"
)

// scanState is the backend-private bookkeeping of one run. It lives for a
// single invocation and is never shared, so it needs no synchronization.
type scanState struct {
	info    *Info
	stats   *Stats
	checker gistvac.DeleteChecker

	// startNSN is the split-generation marker captured at scan start; any
	// page with a newer NSN was split while the scan was running.
	startNSN LSN

	internalPagesMap  *blockset.BlockSet
	emptyLeafPagesMap *blockset.BlockSet

	// emptyPages counts candidate empty leaves not yet retired.
	emptyPages BlockNumber

	throttle throttle
}

func newScanState(info *Info, stats *Stats, checker gistvac.DeleteChecker) *scanState {
	return &scanState{
		info:     info,
		stats:    stats,
		checker:  checker,
		throttle: throttle{ctx: info.ctx(), cfg: info.Cost},
	}
}

func (s *scanState) free() {
	s.internalPagesMap.Free()
	s.emptyLeafPagesMap.Free()
}
