package datasync

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/logging"
)

// Syncer runs one sync cycle.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Scheduler triggers a cycle every Frequency while canSync holds. Failures
// are logged and left to the next tick.
type Scheduler struct {
	syncer    Syncer
	canSync   func(ctx context.Context) bool
	frequency time.Duration
	logger    logging.Logger
}

func NewScheduler(s Syncer, canSync func(ctx context.Context) bool, frequency time.Duration, l logging.Logger) *Scheduler {
	if frequency <= 0 {
		frequency = DefaultConfig().Frequency
	}
	if l == nil {
		l = logging.Nop()
	}
	return &Scheduler{syncer: s, canSync: canSync, frequency: frequency, logger: l.With("module", "sync_scheduler")}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.frequency)
	defer ticker.Stop()

	s.logger.Info(ctx, "background sync started", "frequency", s.frequency)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "background sync stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.canSync(ctx) {
		s.logger.Debug(ctx, "sync skipped, session cannot sync data")
		return
	}
	if err := s.syncer.Sync(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn(ctx, "background sync failed", "error", err)
	}
}
