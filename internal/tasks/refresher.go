package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Refresher periodically re-scores open tasks. Scores depend on the clock,
// so a task created two weeks out has to climb as its deadline approaches.
type Refresher struct {
	store    Store
	interval time.Duration
	log      *log.Logger
	now      func() time.Time
}

func NewRefresher(store Store, interval time.Duration, logger *log.Logger) *Refresher {
	return &Refresher{
		store:    store,
		interval: interval,
		log:      logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. A non-positive interval disables it.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info("priority refresher disabled")
		return
	}

	r.log.Info("priority refresher started", "interval", r.interval)
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			r.log.Info("priority refresher stopped")
			return
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	n, err := r.RefreshOnce(ctx)
	if err != nil {
		r.log.Error("priority refresh failed", "err", err)
		return
	}
	if n > 0 {
		r.log.Debug("priorities refreshed", "updated", n)
	}
}

// RefreshOnce re-scores every open task and writes back the ones that moved.
func (r *Refresher) RefreshOnce(ctx context.Context) (int, error) {
	open, err := r.store.ListOpen(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now()
	updated := 0
	for _, t := range open {
		prev := t.Priority
		t.Reschedule(t.DueDate, t.Type, now)
		if t.Priority == prev {
			continue
		}
		if err := r.store.SetPriority(ctx, t.ID, t.Priority); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
