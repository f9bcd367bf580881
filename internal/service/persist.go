package service

import (
	"context"
	"time"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 15 * time.Second

// flush is the debounced write-back
func (s *Service) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	s.persistNow(ctx)
}

// Flush writes back pending changes without waiting for the debounce
func (s *Service) Flush(ctx context.Context) {
	s.persistNow(ctx)
}

// persistNow writes every pending collection and scalar to the store in parallel.
// A failed collection write is logged and dropped; the next write of that collection
// supersedes it. A failed scalar write is queued again.
func (s *Service) persistNow(ctx context.Context) {
	s.cycle.Lock()
	defer s.cycle.Unlock()

	s.mu.Lock()
	pending := s.pending
	s.pending = ledger.Changes{}
	state := s.state.Clone()
	s.mu.Unlock()

	if !pending.Any() {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	if pending.Users {
		g.Go(func() error { return s.logWrite("users", s.store.SaveUsers(gctx, state.Users)) })
	}
	if pending.Loans {
		g.Go(func() error { return s.logWrite("loans", s.store.SaveLoans(gctx, state.Loans)) })
	}
	if pending.Notifications {
		g.Go(func() error { return s.logWrite("notifications", s.store.SaveNotifications(gctx, state.Notifications)) })
	}
	var budgetErr, rankProfitErr error
	if pending.Budget {
		g.Go(func() error {
			budgetErr = s.store.SaveConfig(gctx, models.ConfigBudget, state.Budget)
			return s.logWrite("budget", budgetErr)
		})
	}
	if pending.RankProfit {
		g.Go(func() error {
			rankProfitErr = s.store.SaveConfig(gctx, models.ConfigRankProfit, state.RankProfit)
			return s.logWrite("rankProfit", rankProfitErr)
		})
	}
	_ = g.Wait()

	// A written scalar stops shadowing the store unless it changed again meanwhile.
	// A failed one keeps shadowing it and goes out with the next flush.
	s.mu.Lock()
	retry := false
	if pending.Budget {
		switch {
		case budgetErr != nil:
			s.pending.Budget, retry = true, true
		case s.state.Budget == state.Budget && !s.pending.Budget:
			s.dirty.Budget = false
		}
	}
	if pending.RankProfit {
		switch {
		case rankProfitErr != nil:
			s.pending.RankProfit, retry = true, true
		case s.state.RankProfit == state.RankProfit && !s.pending.RankProfit:
			s.dirty.RankProfit = false
		}
	}
	s.mu.Unlock()
	if retry {
		s.debounce.Trigger()
	}
}

// logWrite never fails the group, so one failed collection does not cancel the others
func (s *Service) logWrite(what string, err error) error {
	if err != nil {
		s.log.Errorf("Failed to write %s: %v", what, err)
		return nil
	}
	s.log.Debugf("Wrote %s", what)
	return nil
}
