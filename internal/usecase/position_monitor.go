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

var (
	ErrPositionExists   = fmt.Errorf("position already tracked for symbol and direction")
	ErrPositionNotFound = fmt.Errorf("position not found")
	ErrInvalidPosition  = fmt.Errorf("invalid position parameters")
)

// MonitorConfig holds the risk parameters of the position monitor.
type MonitorConfig struct {
	ATRStopMultiple    float64       `yaml:"atr_stop_multiple"`
	TakeProfitLevels   [3]float64    `yaml:"take_profit_levels"`  // fractional gains from entry
	TrailingActivation float64       `yaml:"trailing_activation"` // PnL fraction that arms the trailing stop
	RSIExtremeLong     float64       `yaml:"rsi_extreme_long"`
	RSIExtremeShort    float64       `yaml:"rsi_extreme_short"`
	RSIMinPnL          float64       `yaml:"rsi_min_pnl"` // profit fraction before the RSI reminder arms
	RSIRearmAfter      time.Duration `yaml:"rsi_rearm_after"`
	ReversalConfidence float64       `yaml:"reversal_confidence"` // fusion confidence that counts as a reversal
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ATRStopMultiple:    1.5,
		TakeProfitLevels:   [3]float64{0.04, 0.06, 0.10},
		TrailingActivation: 0.05,
		RSIExtremeLong:     75,
		RSIExtremeShort:    25,
		RSIMinPnL:          0.05,
		RSIRearmAfter:      time.Hour,
		ReversalConfidence: 70,
	}
}

// PositionEvent is one risk alert raised for a tracked position.
type PositionEvent struct {
	Position domain.Position
	Alert    domain.PositionAlert
	Price    float64
	PnL      float64
	Message  string
}

// PositionMonitor tracks open positions and raises exit alerts. Each alert
// kind fires once per position; the RSI extreme alert re-arms after a
// configured quiet period.
type PositionMonitor struct {
	repo   domain.PositionRepository
	cfg    MonitorConfig
	logger *zap.Logger

	mu        sync.Mutex
	positions map[string]*domain.Position

	timeNow func() time.Time
}

func NewPositionMonitor(ctx context.Context, repo domain.PositionRepository, cfg MonitorConfig, logger *zap.Logger) (*PositionMonitor, error) {
	m := &PositionMonitor{
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		positions: make(map[string]*domain.Position),
		timeNow:   time.Now,
	}

	stored, err := repo.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	for _, p := range stored {
		pos := *p
		if pos.FiredAlerts == nil {
			pos.FiredAlerts = make(map[domain.PositionAlert]time.Time)
		}
		m.positions[pos.ID] = &pos
	}
	if len(stored) > 0 {
		logger.Info("Positions restored", zap.Int("positions", len(stored)))
	}

	return m, nil
}

// Open registers a new position. The stop loss sits one and a half ATR from
// entry and the three take profits are fixed fractions above (or below, for
// shorts) the entry price.
func (m *PositionMonitor) Open(ctx context.Context, symbol string, direction domain.Direction, entryPrice, atr float64, snap domain.IndicatorSnapshot) (domain.Position, error) {
	if symbol == "" || entryPrice <= 0 || atr <= 0 {
		return domain.Position{}, ErrInvalidPosition
	}
	if direction != domain.DirectionLong && direction != domain.DirectionShort {
		return domain.Position{}, ErrInvalidPosition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.positions {
		if p.Symbol == symbol && p.Direction == direction {
			return domain.Position{}, ErrPositionExists
		}
	}

	now := m.timeNow()
	pos := &domain.Position{
		ID:            domain.PositionID(symbol, direction, now),
		Symbol:        symbol,
		Direction:     direction,
		EntryPrice:    entryPrice,
		EntrySnapshot: snap,
		ATR:           atr,
		HighWater:     entryPrice,
		LowWater:      entryPrice,
		FiredAlerts:   make(map[domain.PositionAlert]time.Time),
		CreatedAt:     now,
	}

	stopDistance := m.cfg.ATRStopMultiple * atr
	if direction == domain.DirectionLong {
		pos.StopLoss = entryPrice - stopDistance
		for i, level := range m.cfg.TakeProfitLevels {
			pos.TakeProfits[i] = entryPrice * (1 + level)
		}
	} else {
		pos.StopLoss = entryPrice + stopDistance
		for i, level := range m.cfg.TakeProfitLevels {
			pos.TakeProfits[i] = entryPrice * (1 - level)
		}
	}

	m.positions[pos.ID] = pos
	if err := m.repo.SavePosition(ctx, pos); err != nil {
		m.logger.Error("Failed to save position", zap.String("id", pos.ID), zap.Error(err))
	}
	m.logger.Info("Position opened",
		zap.String("id", pos.ID),
		zap.Float64("entry", entryPrice),
		zap.Float64("stop_loss", pos.StopLoss))
	return *pos, nil
}

// Close removes a tracked position.
func (m *PositionMonitor) Close(ctx context.Context, id string) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok {
		return domain.Position{}, ErrPositionNotFound
	}
	delete(m.positions, id)
	if err := m.repo.DeletePosition(ctx, id); err != nil {
		m.logger.Error("Failed to delete position", zap.String("id", id), zap.Error(err))
	}
	m.logger.Info("Position closed", zap.String("id", id))
	return *pos, nil
}

// Positions returns a snapshot copy of all tracked positions.
func (m *PositionMonitor) Positions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// Evaluate checks one position against the latest candles and fusion
// signals, updates the trailing stop, and returns any alerts that fired.
func (m *PositionMonitor) Evaluate(ctx context.Context, id string, candles []domain.Candle, signals []domain.FusionSignal) []PositionEvent {
	if len(candles) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[id]
	if !ok {
		return nil
	}

	price := candles[len(candles)-1].Close
	if price <= 0 {
		return nil
	}
	if price > pos.HighWater {
		pos.HighWater = price
	}
	if price < pos.LowWater {
		pos.LowWater = price
	}

	pnl := pos.PnLPercent(price)
	snap := indicator.Snapshot(candles)
	var events []PositionEvent

	fire := func(alert domain.PositionAlert, msg string) {
		pos.FiredAlerts[alert] = m.timeNow()
		events = append(events, PositionEvent{
			Position: *pos,
			Alert:    alert,
			Price:    price,
			PnL:      pnl,
			Message:  msg,
		})
	}

	// Trailing stop: once in decent profit, drag the stop behind the price.
	// The stop only ever tightens.
	if pnl > m.cfg.TrailingActivation*100 {
		trail := m.cfg.ATRStopMultiple * pos.ATR
		if pos.Direction == domain.DirectionLong {
			if candidate := price - trail; candidate > pos.StopLoss {
				pos.StopLoss = candidate
			}
		} else {
			if candidate := price + trail; candidate < pos.StopLoss {
				pos.StopLoss = candidate
			}
		}
	}

	stopHit := (pos.Direction == domain.DirectionLong && price <= pos.StopLoss) ||
		(pos.Direction == domain.DirectionShort && price >= pos.StopLoss)
	if stopHit && m.notFired(pos, domain.AlertStopLoss) {
		fire(domain.AlertStopLoss, fmt.Sprintf("stop loss %.6f hit at %.6f", pos.StopLoss, price))
	}

	tpAlerts := [3]domain.PositionAlert{domain.AlertTakeProfit1, domain.AlertTakeProfit2, domain.AlertTakeProfit3}
	for i, target := range pos.TakeProfits {
		reached := (pos.Direction == domain.DirectionLong && price >= target) ||
			(pos.Direction == domain.DirectionShort && price <= target)
		if reached && m.notFired(pos, tpAlerts[i]) {
			fire(tpAlerts[i], fmt.Sprintf("take profit %d at %.6f", i+1, target))
		}
	}

	// The RSI reminder only nags positions that are already in decent profit.
	rsiExtreme := (pos.Direction == domain.DirectionLong && snap.RSI >= m.cfg.RSIExtremeLong) ||
		(pos.Direction == domain.DirectionShort && snap.RSI <= m.cfg.RSIExtremeShort)
	if rsiExtreme && pnl > m.cfg.RSIMinPnL*100 && m.rsiArmed(pos) {
		fire(domain.AlertRSIExtreme, fmt.Sprintf("rsi %.1f at extreme", snap.RSI))
	}

	if m.trendFlipped(pos, snap) && m.notFired(pos, domain.AlertTrendReversal) {
		fire(domain.AlertTrendReversal, "fast ema crossed against the position")
	}

	for _, sig := range signals {
		against := (pos.Direction == domain.DirectionLong && sig.Kind == domain.FusionBearish) ||
			(pos.Direction == domain.DirectionShort && sig.Kind == domain.FusionBullish)
		if against && pnl > 0 && sig.Confidence >= m.cfg.ReversalConfidence && m.notFired(pos, domain.AlertPatternReversal) {
			fire(domain.AlertPatternReversal, fmt.Sprintf("reversal patterns at %.0f confidence", sig.Confidence))
			break
		}
	}

	if err := m.repo.SavePosition(ctx, pos); err != nil {
		m.logger.Error("Failed to save position", zap.String("id", pos.ID), zap.Error(err))
	}

	return events
}

// trendFlipped reports whether the EMA(7)/EMA(25) order has flipped from the
// order recorded at entry. Positions opened without an entry snapshot fall
// back to the direction-based check.
func (m *PositionMonitor) trendFlipped(pos *domain.Position, snap domain.IndicatorSnapshot) bool {
	if snap.EMA25 <= 0 {
		return false
	}
	fastAbove := snap.EMA7 > snap.EMA25
	if pos.EntrySnapshot.EMA25 > 0 {
		return fastAbove != (pos.EntrySnapshot.EMA7 > pos.EntrySnapshot.EMA25)
	}
	if pos.Direction == domain.DirectionLong {
		return !fastAbove
	}
	return fastAbove
}

func (m *PositionMonitor) notFired(pos *domain.Position, alert domain.PositionAlert) bool {
	_, fired := pos.FiredAlerts[alert]
	return !fired
}

// rsiArmed reports whether the RSI extreme alert may fire. Unlike the other
// alerts it re-arms after a quiet period so a position pinned at an extreme
// keeps reminding its owner.
func (m *PositionMonitor) rsiArmed(pos *domain.Position) bool {
	last, fired := pos.FiredAlerts[domain.AlertRSIExtreme]
	if !fired {
		return true
	}
	return m.timeNow().Sub(last) >= m.cfg.RSIRearmAfter
}
