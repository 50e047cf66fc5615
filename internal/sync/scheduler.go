package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic catalog syncs: a full sync on a long interval and
// an incremental product sync on a short one.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a Scheduler that drives the engine on the given
// intervals. A non-positive interval disables that job.
func NewScheduler(
	eng *Engine,
	fullInterval time.Duration,
	incrementalInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if fullInterval > 0 {
		if _, err := c.AddFunc(
			"@every "+fullInterval.String(),
			s.runFullSync,
		); err != nil {
			return nil, err
		}
	}

	if incrementalInterval > 0 {
		if _, err := c.AddFunc(
			"@every "+incrementalInterval.String(),
			s.runIncremental,
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runFullSync() {
	ctx := context.Background()
	s.log.Info("scheduled full sync starting")
	if _, err := s.engine.FullSync(ctx); err != nil {
		s.log.Error("scheduled full sync failed", "error", err)
	}
}

func (s *Scheduler) runIncremental() {
	ctx := context.Background()
	s.log.Info("scheduled incremental product sync starting")
	if _, err := s.engine.SyncProductsIncremental(ctx); err != nil {
		s.log.Error("scheduled incremental sync failed", "error", err)
	}
}
