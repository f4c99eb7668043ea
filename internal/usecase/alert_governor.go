package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"go.uber.org/zap"
)

// GovernorConfig holds the alert throttling knobs.
type GovernorConfig struct {
	Cooldown  time.Duration `yaml:"cooldown"`
	MaxPerDay int           `yaml:"max_per_day"`
}

func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		Cooldown:  2 * time.Hour,
		MaxPerDay: 3,
	}
}

// AlertGovernor enforces per-key cooldowns and daily caps on outgoing
// alerts. A key is symbol plus cadence plus direction; the decision and the
// counter update happen atomically so concurrent scans cannot double-fire.
type AlertGovernor struct {
	repo   domain.ThrottleRepository
	cfg    GovernorConfig
	logger *zap.Logger

	mu      sync.Mutex
	records map[string]*domain.ThrottleRecord

	timeNow func() time.Time
}

func NewAlertGovernor(ctx context.Context, repo domain.ThrottleRepository, cfg GovernorConfig, logger *zap.Logger) (*AlertGovernor, error) {
	g := &AlertGovernor{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		records: make(map[string]*domain.ThrottleRecord),
		timeNow: time.Now,
	}

	stored, err := repo.ListThrottles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load throttles: %w", err)
	}
	for _, r := range stored {
		rec := *r
		g.records[domain.ThrottleKey(rec.Symbol, rec.Cadence, rec.Direction)] = &rec
	}

	return g, nil
}

// Allow decides whether an alert for the key may fire now. On approval the
// counter and timestamp advance before the method returns, so a second
// caller with the same key sees the updated state. The returned count is
// the number of alerts fired today including this one.
func (g *AlertGovernor) Allow(ctx context.Context, symbol, cadence string, direction domain.Direction) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.timeNow()
	key := domain.ThrottleKey(symbol, cadence, direction)

	rec, ok := g.records[key]
	if !ok {
		rec = &domain.ThrottleRecord{
			Symbol:    symbol,
			Cadence:   cadence,
			Direction: direction,
		}
		g.records[key] = rec
	}

	// Counters reset at local midnight, not on a rolling 24h window.
	if !sameLocalDay(rec.LastFiredAt, now) {
		rec.CountToday = 0
	}

	if !rec.LastFiredAt.IsZero() && now.Sub(rec.LastFiredAt) < g.cfg.Cooldown {
		return rec.CountToday, false
	}
	if rec.CountToday >= g.cfg.MaxPerDay {
		return rec.CountToday, false
	}

	rec.LastFiredAt = now
	rec.CountToday++
	if err := g.repo.SaveThrottle(ctx, rec); err != nil {
		g.logger.Error("Failed to save throttle record", zap.String("key", key), zap.Error(err))
	}

	return rec.CountToday, true
}

// ResetDaily zeroes all daily counters. Scheduled at local midnight.
func (g *AlertGovernor) ResetDaily(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, rec := range g.records {
		rec.CountToday = 0
	}
	if err := g.repo.ResetDailyCounts(ctx); err != nil {
		g.logger.Error("Failed to reset daily alert counts", zap.Error(err))
	}
	g.logger.Info("Daily alert counters reset", zap.Int("keys", len(g.records)))
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
