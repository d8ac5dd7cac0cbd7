// Copyright 2025 x4m
// SPDX-License-Identifier: Apache-2.0

package vacuum

import (
	"context"
	"time"
)

// throttle implements the cost-based vacuum delay plus the cooperative
// cancellation check. point is called between pages, never while a page
// lock is held.
type throttle struct {
	ctx     context.Context
	cfg     CostConfig
	balance int
}

func (t *throttle) point() error {
	if err := t.ctx.Err(); err != nil {
		return err
	}

	if t.cfg.Delay <= 0 || t.cfg.Limit <= 0 {
		return nil
	}
	t.balance += t.cfg.PageCost
	if t.balance < t.cfg.Limit {
		return nil
	}
	t.balance = 0

	timer := time.NewTimer(t.cfg.Delay)
	defer timer.Stop()
	select {
	case <-t.ctx.Done():
		return t.ctx.Err()
	case <-timer.C:
		return nil
	}
}
