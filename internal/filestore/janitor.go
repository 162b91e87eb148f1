package filestore

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops handles last touched before a cutoff.
type Pruner interface {
	Prune(before time.Time) (int64, error)
}

// Janitor periodically forgets editor handles that have not been saved
// within ttl.
type Janitor struct {
	pruner Pruner
	ttl    time.Duration
	every  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewJanitor creates a Janitor. If every is <= 0, it defaults to one hour.
func NewJanitor(pruner Pruner, ttl, every time.Duration, logger *slog.Logger) *Janitor {
	if every <= 0 {
		every = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		pruner: pruner,
		ttl:    ttl,
		every:  every,
		now:    time.Now,
		logger: logger,
	}
}

// Run prunes once immediately and then on every tick until ctx is cancelled.
// A zero ttl disables pruning.
func (j *Janitor) Run(ctx context.Context) {
	if j.ttl <= 0 {
		return
	}
	for {
		if _, err := j.RunOnce(); err != nil {
			j.logger.Error("handle pruning failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(j.every):
		}
	}
}

// RunOnce prunes handles older than ttl and returns how many were dropped.
func (j *Janitor) RunOnce() (int64, error) {
	return j.pruner.Prune(j.now().Add(-j.ttl))
}
