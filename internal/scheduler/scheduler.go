package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ambush_bot/internal/usecase"
)

// Config holds the cadence of each recurring job.
type Config struct {
	ScanEvery    time.Duration `yaml:"scan_every"`
	TriggerEvery time.Duration `yaml:"trigger_every"`
	MonitorEvery time.Duration `yaml:"monitor_every"`
}

func DefaultConfig() Config {
	return Config{
		ScanEvery:    time.Hour,
		TriggerEvery: 15 * time.Minute,
		MonitorEvery: 5 * time.Minute,
	}
}

// Scheduler drives the scan, trigger and monitor cycles plus the midnight
// throttle reset. Jobs run in singleton mode so a slow full-market scan can
// never overlap itself.
type Scheduler struct {
	cron     *gocron.Scheduler
	scanner  *usecase.ScannerService
	governor *usecase.AlertGovernor
	cfg      Config
	logger   *zap.Logger
}

func NewScheduler(scanner *usecase.ScannerService, governor *usecase.AlertGovernor, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.ScanEvery <= 0 {
		cfg.ScanEvery = DefaultConfig().ScanEvery
	}
	if cfg.TriggerEvery <= 0 {
		cfg.TriggerEvery = DefaultConfig().TriggerEvery
	}
	if cfg.MonitorEvery <= 0 {
		cfg.MonitorEvery = DefaultConfig().MonitorEvery
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(time.Local),
		scanner:  scanner,
		governor: governor,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.SingletonModeAll()

	if _, err := s.cron.Every(s.cfg.ScanEvery).Name("market_scan").Do(func() {
		s.scanner.ScanCycle(ctx)
	}); err != nil {
		return err
	}

	if _, err := s.cron.Every(s.cfg.TriggerEvery).Name("trigger_check").Do(func() {
		s.scanner.TriggerCycle(ctx)
	}); err != nil {
		return err
	}

	if _, err := s.cron.Every(s.cfg.MonitorEvery).Name("position_monitor").Do(func() {
		s.scanner.MonitorCycle(ctx)
	}); err != nil {
		return err
	}

	// Throttle counters reset at local midnight.
	if _, err := s.cron.Every(1).Day().At("00:00").Name("throttle_reset").Do(func() {
		s.governor.ResetDaily(ctx)
	}); err != nil {
		return err
	}

	s.cron.StartAsync()
	s.logger.Info("Scheduler started",
		zap.Duration("scan_every", s.cfg.ScanEvery),
		zap.Duration("trigger_every", s.cfg.TriggerEvery),
		zap.Duration("monitor_every", s.cfg.MonitorEvery))
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}
