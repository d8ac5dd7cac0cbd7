// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package vacuum

import (
	"go.uber.org/zap"

	"github.com/x4m/gistvac"
	"github.com/x4m/gistvac/blockset"
	"github.com/x4m/gistvac/page"
)

// scan is phase 1: one ascending pass over every page. Entries the checker
// marks dead are removed, internal pages and newly empty leaves are
// recorded for phase 2, and split right-links are chased so no page is
// missed. With a nil checker it degrades to a statistics-only sweep.
func (s *scanState) scan() error {
	// The tuple count and the page counters are re-counted from scratch on
	// every scan; only TuplesRemoved accumulates across calls.
	s.stats.EstimatedCount = false
	s.stats.NumIndexTuples = 0
	s.stats.PagesDeleted = 0
	s.stats.PagesFree = 0

	s.startNSN = s.info.Log.Current()

	var nextBlock BlockNumber
	for {
		// Re-checking the count after draining it guarantees pages added
		// by concurrent inserts during the scan are still visited.
		npages, err := s.info.Store.NumBlocks()
		if err != nil {
			return err
		}
		if nextBlock >= npages {
			s.stats.NumPages = npages
			return nil
		}
		for ; nextBlock < npages; nextBlock++ {
			if err := s.throttle.point(); err != nil {
				return err
			}
			if err := s.vacuumPage(nextBlock); err != nil {
				return err
			}
		}
	}
}

// vacuumPage processes one top-level block plus any right-siblings split
// off to lower block numbers since the scan started. The pending queue
// bounds the work per split, not the stack.
func (s *scanState) vacuumPage(origBlkno BlockNumber) error {
	pending := []BlockNumber{origBlkno}
	for len(pending) > 0 {
		blkno := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		chase, err := s.processPage(blkno, origBlkno)
		if err != nil {
			return err
		}
		if chase != gistvac.InvalidBlock {
			pending = append(pending, chase)
		}
	}
	return nil
}

func (s *scanState) processPage(blkno, origBlkno BlockNumber) (chase BlockNumber, err error) {
	chase = gistvac.InvalidBlock

	guard, err := s.info.Store.Acquire(blkno, gistvac.Exclusive)
	if err != nil {
		return
	}
	defer guard.Release()
	p := page.Page(guard.Bytes())

	switch {
	case p.IsNew() || p.IsDeleted():
		if blkno != rootBlock {
			s.info.FSM.RecordFree(blkno)
			s.stats.PagesFree++
		}

	case p.IsLeaf():
		// A split since scan start can move entries to a lower block the
		// ascending loop has already passed; those are only reachable
		// through the right-link.
		if (p.FollowRight() || p.NSN() > s.startNSN) &&
			p.RightLink() != gistvac.InvalidBlock &&
			p.RightLink() < origBlkno {
			chase = p.RightLink()
		}
		err = s.vacuumLeaf(blkno, guard, p)

	default:
		// internal pages are only recorded here; their edits happen in
		// phase 2
		s.internalPagesMap = blockset.Set(s.internalPagesMap, blkno)
		for i := uint16(0); i < p.Count(); i++ {
			if p.DownlinkInvalid(i) {
				s.info.logger().Warn(
					"index contains an inner tuple marked as invalid",
					zap.Uint32("block", uint32(blkno)),
					zap.Uint16("offset", i),
					zap.String("detail", "this is caused by an incomplete page split at crash recovery before upgrading"),
					zap.String("hint", "please reindex"),
				)
			}
		}
	}
	return
}

func (s *scanState) vacuumLeaf(blkno BlockNumber, guard gistvac.PageGuard, p page.Page) error {
	var todelete []uint16
	if s.checker != nil {
		for i := uint16(0); i < p.Count(); i++ {
			if s.checker.Deletable(p.HeapPtr(i)) {
				todelete = append(todelete, i)
			}
		}
	}

	if len(todelete) > 0 {
		// One record per page, not per entry. Logged before the in-place
		// edit so a failed append leaves the page untouched.
		lsn, err := s.info.Log.AppendUpdate(blkno, todelete)
		if err != nil {
			return err
		}
		guard.MarkDirty()
		p.Delete(todelete)
		p.SetLSN(lsn)
		s.stats.TuplesRemoved += float64(len(todelete))
	}

	if remain := p.Count(); remain > 0 {
		s.stats.NumIndexTuples += float64(remain)
	} else if blkno != rootBlock {
		s.emptyLeafPagesMap = blockset.Set(s.emptyLeafPagesMap, blkno)
		s.emptyPages++
	}
	return nil
}
