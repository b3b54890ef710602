package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

const sweepTimeout = 5 * time.Minute

// Scheduler runs the sweeper on a cron spec with a seconds field.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
}

func NewScheduler(sweeper *Sweeper) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
	}
}

// Start registers the sweep and starts the cron goroutine.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.sweeper.Run(ctx); err != nil {
			logging.Logger.WithError(err).Error("automation sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule automation sweep %q: %w", spec, err)
	}

	logging.Logger.WithField("spec", spec).Info("automation scheduler started")
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
