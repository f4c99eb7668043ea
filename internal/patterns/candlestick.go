package patterns

import (
	"math"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// CandlestickDetector detects reversal and neutral candlestick shapes over
// the tail of a candle series. Each detector is independent and emits a fixed
// nominal confidence.
type CandlestickDetector struct {
	minBodyRatio float64 // minimum long-candle body as share of range
}

func NewCandlestickDetector() *CandlestickDetector {
	return &CandlestickDetector{minBodyRatio: 0.6}
}

// Detect runs all shape detectors against the last candles of the series.
func (d *CandlestickDetector) Detect(candles []domain.Candle) []domain.Pattern {
	var patterns []domain.Pattern
	n := len(candles)
	if n < 2 {
		return patterns
	}

	last := candles[n-1]
	prev := candles[n-2]

	if d.isHammer(last, prev) {
		patterns = append(patterns, pattern("hammer", domain.PatternBullish, 70))
	}
	if d.isShootingStar(last, prev) {
		patterns = append(patterns, pattern("shooting_star", domain.PatternBearish, 70))
	}
	if d.isBullishEngulfing(prev, last) {
		patterns = append(patterns, pattern("bullish_engulfing", domain.PatternBullish, 75))
	}
	if d.isBearishEngulfing(prev, last) {
		patterns = append(patterns, pattern("bearish_engulfing", domain.PatternBearish, 75))
	}
	if d.isPiercingLine(prev, last) {
		patterns = append(patterns, pattern("piercing_line", domain.PatternBullish, 70))
	}
	if d.isDarkCloudCover(prev, last) {
		patterns = append(patterns, pattern("dark_cloud_cover", domain.PatternBearish, 70))
	}
	if d.isDoji(last) {
		patterns = append(patterns, pattern("doji", domain.PatternNeutral, 50))
	}

	if n >= 3 {
		c1, c2, c3 := candles[n-3], candles[n-2], candles[n-1]
		if d.isMorningStar(c1, c2, c3) {
			patterns = append(patterns, pattern("morning_star", domain.PatternBullish, 80))
		}
		if d.isEveningStar(c1, c2, c3) {
			patterns = append(patterns, pattern("evening_star", domain.PatternBearish, 80))
		}
	}

	return patterns
}

func pattern(name string, category domain.PatternCategory, confidence float64) domain.Pattern {
	return domain.Pattern{Name: name, Category: category, Confidence: confidence, Origin: domain.OriginBuiltin}
}

func (d *CandlestickDetector) isHammer(c domain.Candle, prev domain.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	upperWick := c.High - math.Max(c.Open, c.Close)
	lowerWick := math.Min(c.Open, c.Close) - c.Low

	if lowerWick < body*2 {
		return false
	}
	if upperWick > body*0.3 {
		return false
	}
	// Only meaningful after a down candle
	return prev.Close < prev.Open
}

func (d *CandlestickDetector) isShootingStar(c domain.Candle, prev domain.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	upperWick := c.High - math.Max(c.Open, c.Close)
	lowerWick := math.Min(c.Open, c.Close) - c.Low

	if upperWick < body*2 {
		return false
	}
	if lowerWick > body*0.3 {
		return false
	}
	return prev.Close > prev.Open
}

func (d *CandlestickDetector) isBullishEngulfing(prev, c domain.Candle) bool {
	if prev.Close >= prev.Open || c.Close <= c.Open {
		return false
	}
	return c.Open <= prev.Close && c.Close >= prev.Open
}

func (d *CandlestickDetector) isBearishEngulfing(prev, c domain.Candle) bool {
	if prev.Close <= prev.Open || c.Close >= c.Open {
		return false
	}
	return c.Open >= prev.Close && c.Close <= prev.Open
}

func (d *CandlestickDetector) isPiercingLine(prev, c domain.Candle) bool {
	if prev.Close >= prev.Open || c.Close <= c.Open {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return c.Open < prev.Close && c.Close > midpoint && c.Close < prev.Open
}

func (d *CandlestickDetector) isDarkCloudCover(prev, c domain.Candle) bool {
	if prev.Close <= prev.Open || c.Close >= c.Open {
		return false
	}
	midpoint := (prev.Open + prev.Close) / 2
	return c.Open > prev.Close && c.Close < midpoint && c.Close > prev.Open
}

func (d *CandlestickDetector) isDoji(c domain.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	rng := c.High - c.Low
	if rng == 0 {
		return false
	}
	return body <= rng*0.1
}

func (d *CandlestickDetector) isMorningStar(c1, c2, c3 domain.Candle) bool {
	// Long bearish, small indecision body, long bullish closing above c1 midpoint.
	if c1.Close >= c1.Open {
		return false
	}
	body1 := c1.Open - c1.Close
	if range1 := c1.High - c1.Low; body1 < range1*d.minBodyRatio {
		return false
	}
	if math.Abs(c2.Close-c2.Open) > body1*0.4 {
		return false
	}
	if c3.Close <= c3.Open {
		return false
	}
	body3 := c3.Close - c3.Open
	if range3 := c3.High - c3.Low; body3 < range3*d.minBodyRatio {
		return false
	}
	return c3.Close >= (c1.Open+c1.Close)/2
}

func (d *CandlestickDetector) isEveningStar(c1, c2, c3 domain.Candle) bool {
	if c1.Close <= c1.Open {
		return false
	}
	body1 := c1.Close - c1.Open
	if range1 := c1.High - c1.Low; body1 < range1*d.minBodyRatio {
		return false
	}
	if math.Abs(c2.Close-c2.Open) > body1*0.4 {
		return false
	}
	if c3.Close >= c3.Open {
		return false
	}
	body3 := c3.Open - c3.Close
	if range3 := c3.High - c3.Low; body3 < range3*d.minBodyRatio {
		return false
	}
	return c3.Close <= (c1.Open+c1.Close)/2
}
