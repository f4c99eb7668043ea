package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/indicator"
	"go.uber.org/zap"
)

// WatchlistConfig holds the lifecycle thresholds of the watchlist.
type WatchlistConfig struct {
	MaxAgeDays          int     `yaml:"max_age_days"`
	RunawayGain         float64 `yaml:"runaway_gain"`          // fractional gain that makes an entry unchaseable
	PreWarnGap          float64 `yaml:"pre_warn_gap"`          // |EMA gap| below which a pre-warning fires
	PublishFloor        float64 `yaml:"publish_floor"`         // minimum confidence to publish a trigger
	MarketTrendDiscount float64 `yaml:"market_trend_discount"` // confidence multiplier in a bearish market
}

func DefaultWatchlistConfig() WatchlistConfig {
	return WatchlistConfig{
		MaxAgeDays:          30,
		RunawayGain:         0.30,
		PreWarnGap:          0.005,
		PublishFloor:        60,
		MarketTrendDiscount: 0.8,
	}
}

// TriggerDecision is the outcome of evaluating one watchlist entry.
type TriggerDecision struct {
	Entry      domain.WatchlistEntry
	Rule       string
	Confidence float64
	Price      float64
	PreWarn    bool
	Suppressed bool
	Reasons    []string
}

// WatchlistService owns the in-memory watchlist and its persistence. All
// map access goes through the service mutex.
type WatchlistService struct {
	repo   domain.WatchlistRepository
	cfg    WatchlistConfig
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*domain.WatchlistEntry

	timeNow func() time.Time
}

func NewWatchlistService(ctx context.Context, repo domain.WatchlistRepository, cfg WatchlistConfig, logger *zap.Logger) (*WatchlistService, error) {
	s := &WatchlistService{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*domain.WatchlistEntry),
		timeNow: time.Now,
	}

	stored, err := repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	for _, e := range stored {
		entry := *e
		s.entries[entry.Symbol] = &entry
	}
	if len(stored) > 0 {
		logger.Info("Watchlist restored", zap.Int("entries", len(stored)))
	}

	return s, nil
}

// Admit inserts a symbol or rescores it if already present. Rescoring keeps
// the original admission time and price so age and runaway checks measure
// from first admission, and HighestScoreSeen only ever goes up.
func (s *WatchlistService) Admit(ctx context.Context, symbol string, result ScoreResult, price float64, snap domain.IndicatorSnapshot) (domain.WatchlistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[symbol]
	if ok {
		existing.PrimaryScore = result.SlowScore
		existing.SecondaryScore = result.FastScore
		existing.CompositeScore = result.Composite
		if result.Composite > existing.HighestScoreSeen {
			existing.HighestScoreSeen = result.Composite
		}
		s.persist(ctx, existing)
		return *existing, false
	}

	entry := &domain.WatchlistEntry{
		Symbol:              symbol,
		PrimaryScore:        result.SlowScore,
		SecondaryScore:      result.FastScore,
		CompositeScore:      result.Composite,
		HighestScoreSeen:    result.Composite,
		AdmissionPrice:      price,
		SnapshotAtAdmission: snap,
		AddedAt:             s.timeNow(),
	}
	s.entries[symbol] = entry
	s.persist(ctx, entry)
	s.logger.Info("Watchlist admission",
		zap.String("symbol", symbol),
		zap.Int("composite", result.Composite),
		zap.Float64("price", price))
	return *entry, true
}

// Remove drops a symbol from the watchlist.
func (s *WatchlistService) Remove(ctx context.Context, symbol string, reason domain.RemovalReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ctx, symbol, reason)
}

func (s *WatchlistService) removeLocked(ctx context.Context, symbol string, reason domain.RemovalReason) {
	if _, ok := s.entries[symbol]; !ok {
		return
	}
	delete(s.entries, symbol)
	if err := s.repo.DeleteEntry(ctx, symbol); err != nil {
		s.logger.Error("Failed to delete watchlist entry", zap.String("symbol", symbol), zap.Error(err))
	}
	s.logger.Info("Watchlist removal", zap.String("symbol", symbol), zap.String("reason", string(reason)))
}

// Entries returns a snapshot copy of the current watchlist.
func (s *WatchlistService) Entries() []domain.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.WatchlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Contains reports whether a symbol is currently watched.
func (s *WatchlistService) Contains(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[symbol]
	return ok
}

// Prune removes entries that aged out or ran away from their admission price.
// prices maps symbol to last trade price; symbols without a price are skipped.
func (s *WatchlistService) Prune(ctx context.Context, prices map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeNow()
	maxAge := time.Duration(s.cfg.MaxAgeDays) * 24 * time.Hour

	for symbol, entry := range s.entries {
		if entry.Age(now) > maxAge {
			s.removeLocked(ctx, symbol, domain.RemovalExpired)
			continue
		}
		price, ok := prices[symbol]
		if !ok || entry.AdmissionPrice <= 0 {
			continue
		}
		if price >= entry.AdmissionPrice*(1+s.cfg.RunawayGain) {
			s.removeLocked(ctx, symbol, domain.RemovalRunaway)
		}
	}
}

// triggerRule is one row of the breakout rule table. check runs against the
// evaluated market state and reports whether the rule fires.
type triggerRule struct {
	name       string
	confidence float64
	check      func(st triggerState) bool
}

type triggerState struct {
	goldenCross bool
	emaGap      float64
	rsi         float64
	volumeRatio float64
	priceChange float64 // fractional change of the last bar
	breakout    bool    // close above the recent high
}

// A cross only counts once the fast ema clears the slow one by this margin;
// an infinitesimal flip is noise.
const goldenCrossMargin = 0.001

func confirmedGoldenCross(prevGap, gap float64) bool {
	return prevGap <= 0 && gap > goldenCrossMargin
}

// Rules are ordered by strength; the first match wins.
var triggerRules = []triggerRule{
	{
		name:       "golden_cross_volume",
		confidence: 85,
		check: func(st triggerState) bool {
			return st.goldenCross && st.volumeRatio >= 1.5 && st.rsi >= 45 && st.rsi <= 70
		},
	},
	{
		name:       "volume_price_surge",
		confidence: 80,
		check: func(st triggerState) bool {
			return st.volumeRatio >= 2.0 && st.priceChange > 0.05 && st.rsi <= 70
		},
	},
	{
		name:       "resistance_breakout",
		confidence: 75,
		check: func(st triggerState) bool {
			return st.breakout && st.volumeRatio >= 2.0 && st.emaGap > -0.005 && st.rsi <= 70
		},
	},
}

// Evaluate checks one watched symbol against the trigger rule table.
// Returns nil when nothing actionable happened. A pre-warning decision is
// returned at most once per entry lifetime. marketBearish discounts the
// confidence of any fired rule; a discounted confidence below the publish
// floor yields a suppressed decision that the caller must not alert on.
func (s *WatchlistService) Evaluate(ctx context.Context, symbol string, candles []domain.Candle, marketBearish bool) *TriggerDecision {
	if len(candles) < 27 {
		return nil
	}

	s.mu.Lock()
	entry, ok := s.entries[symbol]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	snapshot := *entry
	s.mu.Unlock()

	closes := indicator.Closes(candles)
	last := closes[len(closes)-1]
	snap := indicator.Snapshot(candles)

	ema7s := indicator.EMASeries(closes, 7)
	ema25s := indicator.EMASeries(closes, 25)
	gap := emaGapAt(ema7s, ema25s, len(closes)-1)
	prevGap := emaGapAt(ema7s, ema25s, len(closes)-2)

	st := triggerState{
		goldenCross: confirmedGoldenCross(prevGap, gap),
		emaGap:      gap,
		rsi:         snap.RSI,
		volumeRatio: recentVolumeRatio(candles),
	}
	// The surge rule wants the move concentrated in the last bar, not a
	// slow drift that happens to end on a high-volume candle.
	if prev := closes[len(closes)-2]; prev > 0 {
		st.priceChange = last/prev - 1
	}
	if len(candles) >= 25 {
		st.breakout = last > maxHigh(candles[:len(candles)-1], 24)
	}

	// Pre-warning: fast EMA closing in on the slow one from below. One shot
	// per entry lifetime.
	if gap < 0 && -gap < s.cfg.PreWarnGap && !snapshot.PreWarned {
		s.mu.Lock()
		if e, ok := s.entries[symbol]; ok && !e.PreWarned {
			e.PreWarned = true
			s.persist(ctx, e)
			snapshot = *e
			s.mu.Unlock()
			return &TriggerDecision{
				Entry:   snapshot,
				Rule:    "pre_warn",
				Price:   last,
				PreWarn: true,
				Reasons: []string{fmt.Sprintf("ema gap %.2f%% and closing", gap*100)},
			}
		}
		s.mu.Unlock()
	}

	for _, rule := range triggerRules {
		if !rule.check(st) {
			continue
		}
		confidence := rule.confidence
		reasons := []string{
			fmt.Sprintf("volume %.1fx average", st.volumeRatio),
			fmt.Sprintf("rsi %.1f", st.rsi),
		}
		if marketBearish {
			confidence *= s.cfg.MarketTrendDiscount
			reasons = append(reasons, "bearish market discount applied")
		}
		decision := &TriggerDecision{
			Entry:      snapshot,
			Rule:       rule.name,
			Confidence: confidence,
			Price:      last,
			Reasons:    reasons,
		}
		if confidence < s.cfg.PublishFloor {
			decision.Suppressed = true
			s.logger.Info("Trigger suppressed below publish floor",
				zap.String("symbol", symbol),
				zap.String("rule", rule.name),
				zap.Float64("confidence", confidence))
		}
		return decision
	}

	// A golden cross without volume backing is informational only.
	if st.goldenCross {
		s.logger.Info("Golden cross without volume confirmation",
			zap.String("symbol", symbol),
			zap.Float64("volume_ratio", st.volumeRatio),
			zap.Float64("rsi", st.rsi))
	}

	return nil
}

func (s *WatchlistService) persist(ctx context.Context, entry *domain.WatchlistEntry) {
	if err := s.repo.SaveEntry(ctx, entry); err != nil {
		s.logger.Error("Failed to save watchlist entry", zap.String("symbol", entry.Symbol), zap.Error(err))
	}
}

func recentVolumeRatio(candles []domain.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	start := len(candles) - 21
	if start < 0 {
		start = 0
	}
	prior := candles[start : len(candles)-1]
	sum := 0.0
	for _, c := range prior {
		sum += c.Volume
	}
	avg := sum / float64(len(prior))
	if avg == 0 {
		return 0
	}
	return candles[len(candles)-1].Volume / avg
}
