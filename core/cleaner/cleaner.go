// Package cleaner runs the periodic maintenance pass of the engine:
// expiry, age sweep and eviction, delegated to a single callback.
package cleaner

import (
	"context"
	"sync"
	"time"

	"github.com/redesblock/stash/core/logging"
)

// DefaultInterval is the pause between scheduled maintenance passes.
const DefaultInterval = time.Hour

// Func is one maintenance pass.
type Func func(ctx context.Context) error

// Cleaner triggers the maintenance pass on a fixed schedule and on
// demand.
type Cleaner struct {
	run     Func
	trigger chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
	logger  logging.Logger
}

// New starts the cleanup worker. A non-positive interval falls back to
// DefaultInterval.
func New(interval time.Duration, run Func, logger logging.Logger) *Cleaner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Cleaner{
		run:     run,
		trigger: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		logger:  logger,
	}
	c.wg.Add(1)
	go c.worker(interval)
	return c
}

// Trigger requests a maintenance pass outside the schedule. Triggers
// arriving while one is already pending coalesce.
func (c *Cleaner) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

func (c *Cleaner) worker(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
		case <-c.trigger:
		}
		if err := c.run(context.Background()); err != nil {
			c.logger.Errorf("cleaner: maintenance pass: %v", err)
		}
	}
}

// Close stops the worker. A pass in flight finishes first.
func (c *Cleaner) Close() error {
	close(c.quit)
	c.wg.Wait()
	return nil
}
