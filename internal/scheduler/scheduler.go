// Package scheduler runs the periodic live source refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/misttv/misttv/internal/config"
	"github.com/misttv/misttv/internal/service"
)

// Scheduler triggers RefreshAll on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	live   *service.LiveService
	cfg    config.SchedulerConfig
	logger *slog.Logger
}

// New creates a scheduler. It does nothing until Start is called.
func New(live *service.LiveService, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		live:   live,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the refresh job and starts the cron loop. A disabled
// scheduler starts nothing and returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		s.logger.Info("scheduled refresh starting")
		if err := s.live.RefreshAll(ctx); err != nil {
			s.logger.Error("scheduled refresh finished with errors", slog.String("error", err.Error()))
			return
		}
		s.logger.Info("scheduled refresh finished")
	})
	if err != nil {
		return fmt.Errorf("registering refresh schedule %q: %w", s.cfg.Cron, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("cron", s.cfg.Cron))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}
