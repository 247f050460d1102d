package memory

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is anything that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}

// Janitor runs Sweep on a cron schedule so idle conversations are released
// even when no request touches the store.
type Janitor struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewJanitor schedules sweeps. An empty schedule yields a janitor that does nothing.
func NewJanitor(store Sweeper, schedule string, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{logger: logger.Named("janitor")}
	if schedule == "" {
		return j, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := store.Sweep(); n > 0 {
			j.logger.Debug("sweep finished", zap.Int("removed", n))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	j.cron = c
	return j, nil
}

// Start begins running scheduled sweeps in the background.
func (j *Janitor) Start() {
	if j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("memory janitor started")
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
