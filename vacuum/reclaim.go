// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package vacuum

import (
	"github.com/x4m/gistvac"
	"github.com/x4m/gistvac/blockset"
	"github.com/x4m/gistvac/page"
)

// reclaim is phase 2: revisit every internal page recorded by the scan,
// re-validate its empty-looking children under fresh locks, and retire the
// ones that are still empty and unsplit.
func (s *scanState) reclaim() error {
	for blkno := s.internalPagesMap.Next(blockset.None); blkno != blockset.None && s.emptyPages > 0; blkno = s.internalPagesMap.Next(blkno) {
		if err := s.throttle.point(); err != nil {
			return err
		}
		if err := s.reclaimChildren(blkno); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanState) reclaimChildren(parentBlkno BlockNumber) error {
	guard, err := s.info.Store.Acquire(parentBlkno, gistvac.Exclusive)
	if err != nil {
		return err
	}
	defer guard.Release()
	p := page.Page(guard.Bytes())

	// Any transition since phase 1 is benign: another backend already
	// handled the page or it no longer needs handling.
	if p.IsNew() || p.IsDeleted() || p.IsLeaf() {
		return nil
	}

	var (
		todelete []uint16
		leaves   []BlockNumber
		guards   []gistvac.PageGuard
	)
	defer func() {
		for _, g := range guards {
			g.Release()
		}
	}()

	count := p.Count()
	for i := uint16(0); i < count; i++ {
		// an internal page must always keep at least one downlink
		if len(todelete) >= int(count)-1 {
			break
		}
		child := p.Downlink(i)
		if !s.emptyLeafPagesMap.Get(child) {
			continue
		}

		leafGuard, err := s.info.Store.Acquire(child, gistvac.Exclusive)
		if err != nil {
			return err
		}
		leaf := page.Page(leafGuard.Bytes())

		// Re-check under the fresh lock: still a leaf, still empty, not
		// split since the scan began. A leaf that gained an entry or was
		// split keeps its downlink.
		if leaf.IsLeaf() && !leaf.IsDeleted() && leaf.Count() == 0 &&
			!leaf.FollowRight() && leaf.NSN() <= s.startNSN {
			todelete = append(todelete, i)
			leaves = append(leaves, child)
			guards = append(guards, leafGuard)
		} else {
			leafGuard.Release()
		}
	}

	if len(todelete) == 0 {
		return nil
	}

	// One atomic, WAL-logged step for the parent and its retired children:
	// a crash cannot separate the downlink removal from the leaf deletion.
	// The horizon comes from the oracle, not from a vacuum transaction.
	horizon := s.info.Oracle.Next()
	lsn, err := s.info.Log.AppendDelete(parentBlkno, todelete, leaves, horizon)
	if err != nil {
		return err
	}

	guard.MarkDirty()
	p.Delete(todelete)
	p.SetLSN(lsn)

	for _, leafGuard := range guards {
		leaf := page.Page(leafGuard.Bytes())
		leafGuard.MarkDirty()
		leaf.SetDeleted(horizon)
		leaf.SetLSN(lsn)
		s.emptyPages--
		s.stats.PagesDeleted++
	}
	return nil
}
