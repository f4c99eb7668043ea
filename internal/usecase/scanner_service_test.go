package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
	"go.uber.org/zap"
)

type scannerFixture struct {
	scanner   *ScannerService
	market    *MockMarketData
	notifier  *MockNotifier
	watchlist *WatchlistService
	monitor   *PositionMonitor
	governor  *AlertGovernor
}

func newScannerFixture(t *testing.T, scorerCfg ScorerConfig) *scannerFixture {
	t.Helper()
	logger := zap.NewNop()

	market := &MockMarketData{
		Candles: make(map[string][]domain.Candle),
		Prices:  make(map[string]float64),
		Errs:    make(map[string]error),
	}
	notifier := &MockNotifier{}

	watchlist, err := NewWatchlistService(context.Background(), NewMockWatchlistRepo(), DefaultWatchlistConfig(), logger)
	require.NoError(t, err)
	monitor, err := NewPositionMonitor(context.Background(), NewMockPositionRepo(), DefaultMonitorConfig(), logger)
	require.NoError(t, err)
	governor, err := NewAlertGovernor(context.Background(), NewMockThrottleRepo(), DefaultGovernorConfig(), logger)
	require.NoError(t, err)

	scanner := NewScannerService(
		market,
		NewAmbushScorer(scorerCfg),
		scorerCfg,
		watchlist,
		monitor,
		governor,
		patterns.NewAnalyzer(nil, logger),
		notifier,
		DefaultScannerConfig(),
		logger,
	)

	return &scannerFixture{
		scanner:   scanner,
		market:    market,
		notifier:  notifier,
		watchlist: watchlist,
		monitor:   monitor,
		governor:  governor,
	}
}

func alertKinds(alerts []*domain.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Kind)
	}
	return out
}

func TestScanCycle_AdmitsAndAlerts(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.AdmissionScore = 1
	f := newScannerFixture(t, cfg)

	f.market.Symbols = []string{"SOLUSDT", "SOLBTC"}
	rising := candleSeries(risingCloses(), 1000)
	f.market.Candles["SOLUSDT|4h"] = rising
	f.market.Candles["SOLUSDT|1h"] = rising

	f.scanner.ScanCycle(context.Background())

	assert.True(t, f.watchlist.Contains("SOLUSDT"))
	// Non-USDT pairs are never scanned.
	assert.False(t, f.watchlist.Contains("SOLBTC"))

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "watchlist_admission", sent[0].Kind)
	assert.Equal(t, "SOLUSDT", sent[0].Symbol)
	assert.Equal(t, 1, sent[0].CountToday)
}

func TestScanCycle_SkipsFailingSymbol(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.AdmissionScore = 1
	f := newScannerFixture(t, cfg)

	f.market.Symbols = []string{"BADUSDT", "SOLUSDT"}
	f.market.Errs["BADUSDT"] = errors.New("exchange timeout")
	rising := candleSeries(risingCloses(), 1000)
	f.market.Candles["SOLUSDT|4h"] = rising
	f.market.Candles["SOLUSDT|1h"] = rising

	f.scanner.ScanCycle(context.Background())

	assert.False(t, f.watchlist.Contains("BADUSDT"))
	assert.True(t, f.watchlist.Contains("SOLUSDT"))
}

func TestScanCycle_BelowThresholdNotAdmitted(t *testing.T) {
	f := newScannerFixture(t, DefaultScorerConfig())

	f.market.Symbols = []string{"SOLUSDT"}
	flat := candleSeries(bottomingCloses()[:30], 1000)
	f.market.Candles["SOLUSDT|4h"] = flat

	f.scanner.ScanCycle(context.Background())

	assert.False(t, f.watchlist.Contains("SOLUSDT"))
	assert.Empty(t, f.notifier.Sent())
}

func TestTriggerCycle_FiresAndRemoves(t *testing.T) {
	f := newScannerFixture(t, DefaultScorerConfig())
	f.watchlist.Admit(context.Background(), "SOLUSDT", ScoreResult{Composite: 9}, 99.8, domain.IndicatorSnapshot{})
	f.market.Candles["SOLUSDT|1h"] = crossoverCandles()

	f.scanner.TriggerCycle(context.Background())

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "trigger_golden_cross_volume", sent[0].Kind)
	assert.Equal(t, 85.0, sent[0].Confidence)
	// A fired trigger consumes the watchlist entry.
	assert.False(t, f.watchlist.Contains("SOLUSDT"))
}

func TestTriggerCycle_ThrottledKeepsEntry(t *testing.T) {
	f := newScannerFixture(t, DefaultScorerConfig())
	f.watchlist.Admit(context.Background(), "SOLUSDT", ScoreResult{Composite: 9}, 99.8, domain.IndicatorSnapshot{})
	f.market.Candles["SOLUSDT|1h"] = crossoverCandles()

	// Exhaust the key before the cycle runs.
	_, ok := f.governor.Allow(context.Background(), "SOLUSDT", "fast", domain.DirectionLong)
	require.True(t, ok)

	f.scanner.TriggerCycle(context.Background())

	assert.Empty(t, f.notifier.Sent())
	// The entry stays armed for the next window.
	assert.True(t, f.watchlist.Contains("SOLUSDT"))
}

func TestTriggerCycle_PrunesRunawayFirst(t *testing.T) {
	f := newScannerFixture(t, DefaultScorerConfig())
	f.watchlist.Admit(context.Background(), "RUNUSDT", ScoreResult{Composite: 9}, 100, domain.IndicatorSnapshot{})
	f.market.Prices["RUNUSDT"] = 135
	f.market.Candles["RUNUSDT|1h"] = crossoverCandles()

	f.scanner.TriggerCycle(context.Background())

	// 35% past admission: the entry is gone before the rules even run, so
	// no late trigger chases the move.
	assert.False(t, f.watchlist.Contains("RUNUSDT"))
	assert.Empty(t, f.notifier.Sent())
}

func TestMonitorCycle_SendsPositionAlerts(t *testing.T) {
	f := newScannerFixture(t, DefaultScorerConfig())
	_, err := f.monitor.Open(context.Background(), "SOLUSDT", domain.DirectionLong, 100, 2, domain.IndicatorSnapshot{})
	require.NoError(t, err)
	f.market.Candles["SOLUSDT|1h"] = priceCandles(96.5)

	f.scanner.MonitorCycle(context.Background())

	kinds := alertKinds(f.notifier.Sent())
	assert.Contains(t, kinds, "position_stop_loss")
}

func TestScanSymbol_Report(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.AdmissionScore = 1
	f := newScannerFixture(t, cfg)
	rising := candleSeries(risingCloses(), 1000)
	f.market.Candles["SOLUSDT|4h"] = rising
	f.market.Candles["SOLUSDT|1h"] = rising

	report, err := f.scanner.ScanSymbol(context.Background(), "SOLUSDT")

	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", report.Symbol)
	assert.True(t, report.Admitted)
	assert.Equal(t, rising[len(rising)-1].Close, report.LastPrice)
	assert.Greater(t, report.Snapshot.EMA7, report.Snapshot.EMA25)
}
