package core

// scheduler.go provides cron-driven background rebuilds.
//
// When a schedule expression is configured the service starts the
// default build on that cadence. A tick that lands while a run is
// still executing is skipped and logged, not queued.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// startScheduler arms the cron trigger when a schedule is configured.
func (s *Service) startScheduler() error {
	spec := s.cfg.Build.ScheduleSpec
	if spec == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		id, err := s.StartRun(context.Background(), RunRequest{})
		if errors.Is(err, ErrRunInProgress) {
			slog.Info("scheduled rebuild skipped, run already active")
			return
		}
		if err != nil {
			slog.Error("scheduled rebuild failed to start", "error", err)
			return
		}
		slog.Info("scheduled rebuild started", "run_id", id)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	slog.Info("rebuild schedule armed", "spec", spec)
	return nil
}

// stopScheduler stops the cron trigger if armed. Stop does not
// interrupt a job already running.
func (s *Service) stopScheduler() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}
