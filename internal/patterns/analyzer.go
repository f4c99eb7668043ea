package patterns

import (
	"context"
	"sync"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/indicator"
	"go.uber.org/zap"
)

// Analyzer is the pattern-recognition front-end. It prefers the external
// pattern service for candlestick shapes and falls back to the builtin
// detectors when the service is unreachable. Chart formations are always
// detected locally.
type Analyzer struct {
	service     domain.PatternService // optional, may be nil
	candlestick *CandlestickDetector
	chart       *ChartDetector
	logger      *zap.Logger

	mu       sync.Mutex
	degraded bool
}

func NewAnalyzer(service domain.PatternService, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		service:     service,
		candlestick: NewCandlestickDetector(),
		chart:       NewChartDetector(),
		logger:      logger,
	}
}

// Analyze runs pattern detection and fusion for one candle series.
func (a *Analyzer) Analyze(ctx context.Context, candles []domain.Candle) FusionResult {
	candlePatterns := a.detectCandlesticks(ctx, candles)
	chartPatterns := a.chart.Detect(candles)

	snap := indicator.Snapshot(candles)
	volumeRatio := recentVolumeRatio(candles)

	return Fuse(candlePatterns, chartPatterns, snap, volumeRatio)
}

func (a *Analyzer) detectCandlesticks(ctx context.Context, candles []domain.Candle) []domain.Pattern {
	if a.service != nil && a.service.Healthy(ctx) {
		patterns, err := a.service.DetectPatterns(ctx, candles)
		if err == nil {
			a.setDegraded(false)
			return patterns
		}
		a.logger.Debug("pattern service call failed", zap.Error(err))
	}
	a.setDegraded(a.service != nil)
	return a.candlestick.Detect(candles)
}

// setDegraded logs the fallback transition once per state change, not per
// evaluation.
func (a *Analyzer) setDegraded(degraded bool) {
	a.mu.Lock()
	changed := a.degraded != degraded
	a.degraded = degraded
	a.mu.Unlock()

	if !changed {
		return
	}
	if degraded {
		a.logger.Warn("pattern service unavailable, using builtin detectors")
	} else {
		a.logger.Info("pattern service recovered")
	}
}

// recentVolumeRatio compares the last candle's volume against the average of
// the 20 candles preceding it.
func recentVolumeRatio(candles []domain.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	start := len(candles) - 21
	if start < 0 {
		start = 0
	}
	avg := indicator.Average(indicator.Volumes(candles[start : len(candles)-1]))
	if avg == 0 {
		return 0
	}
	return candles[len(candles)-1].Volume / avg
}
