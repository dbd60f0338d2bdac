package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/config"
	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/service/whatsapp"
)

const runTimeout = 10 * time.Minute

// Sweeper verifies every breeding season.
type Sweeper interface {
	VerifyAllSeasons(ctx context.Context, toleranceDays int) (models.SweepResult, error)
}

// Exporter publishes season metrics after a sweep.
type Exporter interface {
	ExportSeasonMetrics(ctx context.Context) (int, error)
}

// Scheduler runs the nightly verification sweep.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	exporter Exporter
	notifier whatsapp.Notifier
	cfg      config.SweepConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.SweepConfig, sweeper Sweeper, exporter Exporter, notifier whatsapp.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = whatsapp.Discard{}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		// standard 5-field parser: min, hour, dom, month, dow
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		exporter: exporter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start registers the nightly job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runNightly); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.cfg.CronSchedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runNightly() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("nightly sweep failed", zap.Error(err))
	}
}

// RunOnce sweeps every season, then notifies and exports. Notification and
// export failures are logged and do not fail the run.
func (s *Scheduler) RunOnce(ctx context.Context) (models.SweepResult, error) {
	started := s.now()
	result, err := s.sweeper.VerifyAllSeasons(ctx, s.cfg.ToleranceDays)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("verify all seasons: %w", err)
	}

	if err := s.notifier.NotifySweep(ctx, result, started); err != nil {
		s.logger.Error("failed to send sweep notification", zap.Error(err))
	}

	if s.exporter != nil {
		if rows, err := s.exporter.ExportSeasonMetrics(ctx); err != nil {
			s.logger.Error("failed to export season metrics", zap.Error(err))
		} else {
			s.logger.Debug("season metrics export finished", zap.Int("rows", rows))
		}
	}

	s.logger.Info("nightly sweep completed",
		zap.Int("linked", result.Linked),
		zap.Int("registered", result.Registered),
		zap.Int("discovered", result.Discovered),
		zap.Duration("duration", s.now().Sub(started)))
	return result, nil
}
