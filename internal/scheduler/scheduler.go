// Package scheduler drives periodic marketplace pulls. Each adapter
// gets its own cron entry so a slow eBay sync never delays Etsy.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/guarzo/crosslist/internal/marketplace"
)

// DefaultInterval is how often each connected adapter is pulled.
const DefaultInterval = 5 * time.Minute

// Scheduler owns the timer loop for automatic reconciliation.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
}

// New creates a scheduler pulling every interval (DefaultInterval when
// zero or negative).
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		cron:     cron.New(),
		interval: interval,
		timeout:  2 * time.Minute,
	}
}

// Add registers an adapter for scheduled pulls.
func (s *Scheduler) Add(adapter marketplace.Adapter) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runPull(adapter) }); err != nil {
		return fmt.Errorf("scheduling %s pull: %w", adapter.Platform(), err)
	}
	return nil
}

// runPull performs one scheduled pull. It skips adapters that are not
// connected or already syncing, and swallows pull errors so one bad
// network call never halts the timer loop; the next tick retries.
func (s *Scheduler) runPull(adapter marketplace.Adapter) {
	if adapter.State() != marketplace.StateConnected || adapter.Syncing() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := adapter.Pull(ctx)
	if err != nil {
		log.Printf("scheduled %s pull failed: %v", adapter.Platform(), err)
		return
	}
	log.Printf("scheduled %s pull: %d matched, %d unmatched, %d updated",
		adapter.Platform(), res.Matched, res.Unmatched, res.Updated)
}

// Start begins the timer loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. An in-flight pull completes and applies its
// effects; there is no cancellation beyond the per-pull timeout.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
