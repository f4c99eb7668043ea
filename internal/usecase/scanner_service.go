package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/indicator"
	"github.com/vitos/crypto_ambush_bot/internal/metrics"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
	"go.uber.org/zap"
)

// ScannerConfig holds the scheduling and fan-out parameters of the scanner.
type ScannerConfig struct {
	SlowInterval  string        `yaml:"slow_interval"`
	FastInterval  string        `yaml:"fast_interval"`
	CandleLimit   int           `yaml:"candle_limit"`
	Concurrency   int           `yaml:"concurrency"`
	SymbolTimeout time.Duration `yaml:"symbol_timeout"`
	MarketSymbol  string        `yaml:"market_symbol"` // reference symbol for the market trend filter
	QuoteAsset    string        `yaml:"quote_asset"`
}

func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		SlowInterval:  "4h",
		FastInterval:  "1h",
		CandleLimit:   100,
		Concurrency:   5,
		SymbolTimeout: 10 * time.Second,
		MarketSymbol:  "BTCUSDT",
		QuoteAsset:    "USDT",
	}
}

// SymbolReport is the full evaluation of one symbol, used by the manual
// scan endpoint and the one-shot CLI.
type SymbolReport struct {
	Symbol    string                   `json:"symbol"`
	Score     ScoreResult              `json:"score"`
	Admitted  bool                     `json:"admitted"`
	Snapshot  domain.IndicatorSnapshot `json:"snapshot"`
	Fusion    patterns.FusionResult    `json:"fusion"`
	LastPrice float64                  `json:"last_price"`
}

// ScannerService drives the three scheduled cycles: the slow admission scan,
// the fast trigger scan over the watchlist, and the position monitor pass.
type ScannerService struct {
	market    domain.MarketData
	scorer    *AmbushScorer
	scorerCfg ScorerConfig
	watchlist *WatchlistService
	monitor   *PositionMonitor
	governor  *AlertGovernor
	analyzer  *patterns.Analyzer
	notifier  domain.Notifier
	cfg       ScannerConfig
	logger    *zap.Logger

	timeNow func() time.Time
}

func NewScannerService(
	market domain.MarketData,
	scorer *AmbushScorer,
	scorerCfg ScorerConfig,
	watchlist *WatchlistService,
	monitor *PositionMonitor,
	governor *AlertGovernor,
	analyzer *patterns.Analyzer,
	notifier domain.Notifier,
	cfg ScannerConfig,
	logger *zap.Logger,
) *ScannerService {
	return &ScannerService{
		market:    market,
		scorer:    scorer,
		scorerCfg: scorerCfg,
		watchlist: watchlist,
		monitor:   monitor,
		governor:  governor,
		analyzer:  analyzer,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		timeNow:   time.Now,
	}
}

// ScanCycle evaluates the whole market for watchlist admissions. Symbols are
// scanned with bounded concurrency; one bad symbol is skipped, never fatal.
func (s *ScannerService) ScanCycle(ctx context.Context) {
	started := s.timeNow()
	symbols, err := s.market.GetSymbols(ctx)
	if err != nil {
		s.logger.Error("Failed to list symbols", zap.Error(err))
		return
	}
	symbols = s.filterQuote(symbols)

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanOne(ctx, symbol)
		}(symbol)
	}
	wg.Wait()

	s.pruneWatchlist(ctx)

	metrics.IncScanCycle("slow")
	metrics.IncSymbolsScanned(len(symbols))
	metrics.SetWatchlistSize(len(s.watchlist.Entries()))
	metrics.ObserveScanDuration("slow", s.timeNow().Sub(started).Seconds())
	s.logger.Info("Scan cycle finished",
		zap.Int("symbols", len(symbols)),
		zap.Duration("took", s.timeNow().Sub(started)))
}

func (s *ScannerService) scanOne(ctx context.Context, symbol string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	slow, err := s.market.GetCandles(ctx, symbol, s.cfg.SlowInterval, s.cfg.CandleLimit)
	if err != nil {
		metrics.IncSymbolError("candles")
		s.logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	fast, err := s.market.GetCandles(ctx, symbol, s.cfg.FastInterval, s.cfg.CandleLimit)
	if err != nil {
		// Fast data is optional; the scorer falls back to the slow-only bar.
		fast = nil
	}

	if len(slow) == 0 {
		return
	}

	result := s.scorer.Score(slow, fast)
	if !result.Admissible(s.scorerCfg) {
		return
	}

	price := slow[len(slow)-1].Close
	snap := indicator.Snapshot(slow)
	entry, isNew := s.watchlist.Admit(ctx, symbol, result, price, snap)
	if !isNew {
		return
	}

	count, ok := s.governor.Allow(ctx, symbol, "slow", domain.DirectionLong)
	if !ok {
		metrics.IncAlertThrottled()
		return
	}
	alert := &domain.Alert{
		Symbol:     symbol,
		Cadence:    "slow",
		Direction:  domain.DirectionLong,
		Kind:       "watchlist_admission",
		Score:      entry.CompositeScore,
		Price:      price,
		Reasons:    result.Reasons,
		CountToday: count,
		CreatedAt:  s.timeNow(),
	}
	s.send(ctx, alert)
}

// TriggerCycle evaluates every watched symbol against the breakout rules.
// Expired and runaway entries are pruned first so a symbol that already ran
// past its admission price never fires a late trigger.
func (s *ScannerService) TriggerCycle(ctx context.Context) {
	started := s.timeNow()
	s.pruneWatchlist(ctx)
	marketBearish := s.marketBearish(ctx)

	for _, entry := range s.watchlist.Entries() {
		if ctx.Err() != nil {
			return
		}
		s.triggerOne(ctx, entry.Symbol, marketBearish)
	}

	metrics.IncScanCycle("fast")
	metrics.SetWatchlistSize(len(s.watchlist.Entries()))
	metrics.ObserveScanDuration("fast", s.timeNow().Sub(started).Seconds())
}

func (s *ScannerService) triggerOne(ctx context.Context, symbol string, marketBearish bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	candles, err := s.market.GetCandles(ctx, symbol, s.cfg.FastInterval, s.cfg.CandleLimit)
	if err != nil {
		metrics.IncSymbolError("candles")
		s.logger.Warn("Skipping watched symbol", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	decision := s.watchlist.Evaluate(ctx, symbol, candles, marketBearish)
	if decision == nil {
		return
	}

	// A suppressed trigger never reaches the governor, so the cooldown stays
	// armed for the next, stronger signal.
	if decision.Suppressed {
		return
	}

	if decision.PreWarn {
		count, ok := s.governor.Allow(ctx, symbol, "fast", domain.DirectionLong)
		if !ok {
			metrics.IncAlertThrottled()
			return
		}
		s.send(ctx, &domain.Alert{
			Symbol:     symbol,
			Cadence:    "fast",
			Direction:  domain.DirectionLong,
			Kind:       "pre_warn",
			Score:      decision.Entry.CompositeScore,
			Price:      decision.Price,
			Reasons:    decision.Reasons,
			CountToday: count,
			CreatedAt:  s.timeNow(),
		})
		return
	}

	count, ok := s.governor.Allow(ctx, symbol, "fast", domain.DirectionLong)
	if !ok {
		metrics.IncAlertThrottled()
		return
	}
	s.send(ctx, &domain.Alert{
		Symbol:     symbol,
		Cadence:    "fast",
		Direction:  domain.DirectionLong,
		Kind:       "trigger_" + decision.Rule,
		Score:      decision.Entry.CompositeScore,
		Confidence: decision.Confidence,
		Price:      decision.Price,
		Reasons:    decision.Reasons,
		CountToday: count,
		CreatedAt:  s.timeNow(),
	})
	s.watchlist.Remove(ctx, symbol, domain.RemovalTriggered)
}

// MonitorCycle checks all open positions for risk events. Position alerts
// bypass the governor: exit signals must not be rate limited.
func (s *ScannerService) MonitorCycle(ctx context.Context) {
	started := s.timeNow()
	positions := s.monitor.Positions()

	for _, pos := range positions {
		if ctx.Err() != nil {
			return
		}
		s.monitorOne(ctx, pos)
	}

	metrics.IncScanCycle("monitor")
	metrics.SetPositionsOpen(len(s.monitor.Positions()))
	metrics.ObserveScanDuration("monitor", s.timeNow().Sub(started).Seconds())
}

func (s *ScannerService) monitorOne(ctx context.Context, pos domain.Position) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	candles, err := s.market.GetCandles(ctx, pos.Symbol, s.cfg.FastInterval, s.cfg.CandleLimit)
	if err != nil {
		metrics.IncSymbolError("candles")
		s.logger.Warn("Skipping position", zap.String("id", pos.ID), zap.Error(err))
		return
	}

	fusion := s.analyzer.Analyze(ctx, candles)
	events := s.monitor.Evaluate(ctx, pos.ID, candles, fusion.Signals)
	for _, ev := range events {
		s.send(ctx, &domain.Alert{
			Symbol:     ev.Position.Symbol,
			Cadence:    "monitor",
			Direction:  ev.Position.Direction,
			Kind:       "position_" + string(ev.Alert),
			Price:      ev.Price,
			Reasons:    []string{ev.Message},
			Warnings:   []string{pnlNote(ev.PnL)},
			CreatedAt:  s.timeNow(),
		})
	}
}

// ScanSymbol runs the full pipeline for one symbol on demand.
func (s *ScannerService) ScanSymbol(ctx context.Context, symbol string) (SymbolReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	slow, err := s.market.GetCandles(ctx, symbol, s.cfg.SlowInterval, s.cfg.CandleLimit)
	if err != nil {
		return SymbolReport{}, err
	}
	fast, err := s.market.GetCandles(ctx, symbol, s.cfg.FastInterval, s.cfg.CandleLimit)
	if err != nil {
		fast = nil
	}

	report := SymbolReport{
		Symbol:   symbol,
		Score:    s.scorer.Score(slow, fast),
		Snapshot: indicator.Snapshot(slow),
		Fusion:   s.analyzer.Analyze(ctx, slow),
	}
	report.Admitted = report.Score.Admissible(s.scorerCfg)
	if len(slow) > 0 {
		report.LastPrice = slow[len(slow)-1].Close
	}
	return report, nil
}

// marketBearish reports whether the reference symbol trades below its slow
// trend. Errors default to a neutral market so triggers are not discounted
// on flaky data.
func (s *ScannerService) marketBearish(ctx context.Context) bool {
	candles, err := s.market.GetCandles(ctx, s.cfg.MarketSymbol, s.cfg.SlowInterval, s.cfg.CandleLimit)
	if err != nil {
		s.logger.Warn("Market trend check failed", zap.Error(err))
		return false
	}
	snap := indicator.Snapshot(candles)
	return snap.EMA25 > 0 && snap.EMAGap() < 0
}

func (s *ScannerService) pruneWatchlist(ctx context.Context) {
	prices := make(map[string]float64)
	for _, entry := range s.watchlist.Entries() {
		if price := s.market.LastPrice(entry.Symbol); price > 0 {
			prices[entry.Symbol] = price
		}
	}
	s.watchlist.Prune(ctx, prices)
}

func (s *ScannerService) send(ctx context.Context, alert *domain.Alert) {
	if err := s.notifier.Send(ctx, alert); err != nil {
		metrics.IncSymbolError("notify")
		s.logger.Error("Failed to send alert",
			zap.String("symbol", alert.Symbol),
			zap.String("kind", alert.Kind),
			zap.Error(err))
		return
	}
	metrics.IncAlert(alert.Kind)
}

func (s *ScannerService) filterQuote(symbols []string) []string {
	if s.cfg.QuoteAsset == "" {
		return symbols
	}
	out := symbols[:0]
	for _, sym := range symbols {
		if strings.HasSuffix(sym, s.cfg.QuoteAsset) {
			out = append(out, sym)
		}
	}
	return out
}

func pnlNote(pnl float64) string {
	if pnl >= 0 {
		return "position in profit"
	}
	return "position at a loss"
}
