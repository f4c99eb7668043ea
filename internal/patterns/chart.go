package patterns

import (
	"math"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// ChartDetector detects multi-candle chart formations with geometric rules.
type ChartDetector struct{}

func NewChartDetector() *ChartDetector {
	return &ChartDetector{}
}

// Detect runs all formation detectors over the series tail.
func (d *ChartDetector) Detect(candles []domain.Candle) []domain.Pattern {
	var patterns []domain.Pattern

	if p, ok := d.detectDoubleBottom(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := d.detectDoubleTop(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := d.detectPlatform(candles); ok {
		patterns = append(patterns, p)
	}
	if p, ok := d.detectVReversal(candles); ok {
		patterns = append(patterns, p)
	}

	return patterns
}

// detectDoubleBottom looks for two local minima in 10-candle half-windows
// whose levels differ by at most 3%, separated by a bounce of at least 5%.
func (d *ChartDetector) detectDoubleBottom(candles []domain.Candle) (domain.Pattern, bool) {
	if len(candles) < 20 {
		return domain.Pattern{}, false
	}
	window := candles[len(candles)-20:]

	firstIdx := lowestLowIndex(window[:10])
	secondIdx := 10 + lowestLowIndex(window[10:])
	low1 := window[firstIdx].Low
	low2 := window[secondIdx].Low

	if low1 == 0 || math.Abs(low1-low2)/low1 > 0.03 {
		return domain.Pattern{}, false
	}

	// Intervening bounce: closes between the bottoms must reach 5% above the lower low.
	neckline := 0.0
	for i := firstIdx + 1; i < secondIdx; i++ {
		if window[i].Close > neckline {
			neckline = window[i].Close
		}
	}
	base := math.Min(low1, low2)
	if neckline < base*1.05 {
		return domain.Pattern{}, false
	}

	confidence := 65.0
	last := window[len(window)-1]
	if last.Close > neckline {
		confidence += 10 // breakout confirmation
	}
	if window[secondIdx].Volume < window[firstIdx].Volume*0.8 {
		confidence += 10 // drying volume on the retest
	}

	return domain.Pattern{Name: "double_bottom", Category: domain.PatternBullish, Confidence: confidence, Origin: domain.OriginBuiltin}, true
}

// detectDoubleTop is the mirror rule of detectDoubleBottom.
func (d *ChartDetector) detectDoubleTop(candles []domain.Candle) (domain.Pattern, bool) {
	if len(candles) < 20 {
		return domain.Pattern{}, false
	}
	window := candles[len(candles)-20:]

	firstIdx := highestHighIndex(window[:10])
	secondIdx := 10 + highestHighIndex(window[10:])
	high1 := window[firstIdx].High
	high2 := window[secondIdx].High

	if high1 == 0 || math.Abs(high1-high2)/high1 > 0.03 {
		return domain.Pattern{}, false
	}

	neckline := math.Inf(1)
	for i := firstIdx + 1; i < secondIdx; i++ {
		if window[i].Close < neckline {
			neckline = window[i].Close
		}
	}
	peak := math.Max(high1, high2)
	if neckline > peak*0.95 {
		return domain.Pattern{}, false
	}

	confidence := 65.0
	last := window[len(window)-1]
	if last.Close < neckline {
		confidence += 10
	}
	if window[secondIdx].Volume < window[firstIdx].Volume*0.8 {
		confidence += 10
	}

	return domain.Pattern{Name: "double_top", Category: domain.PatternBearish, Confidence: confidence, Origin: domain.OriginBuiltin}, true
}

// detectPlatform finds a tight consolidation (high/low range within 5% over
// 15 candles) and classifies it as a breakout only when the latest close
// deviates more than 3% from the platform average on a volume surge.
func (d *ChartDetector) detectPlatform(candles []domain.Candle) (domain.Pattern, bool) {
	if len(candles) < 15 {
		return domain.Pattern{}, false
	}
	window := candles[len(candles)-15:]

	high := window[highestHighIndex(window)].High
	low := window[lowestLowIndex(window)].Low
	if low == 0 || (high-low)/low > 0.05 {
		return domain.Pattern{}, false
	}

	var sumClose, sumVol float64
	for _, c := range window[:len(window)-1] {
		sumClose += c.Close
		sumVol += c.Volume
	}
	avgClose := sumClose / float64(len(window)-1)
	avgVol := sumVol / float64(len(window)-1)

	last := window[len(window)-1]
	deviation := (last.Close - avgClose) / avgClose
	volumeSurge := avgVol > 0 && last.Volume > avgVol*1.5

	if math.Abs(deviation) > 0.03 && volumeSurge {
		confidence := 70 + math.Abs(deviation)*100*2
		if confidence > 85 {
			confidence = 85
		}
		if deviation > 0 {
			return domain.Pattern{Name: "platform_breakout", Category: domain.PatternBullish, Confidence: confidence, Origin: domain.OriginBuiltin}, true
		}
		return domain.Pattern{Name: "platform_breakdown", Category: domain.PatternBearish, Confidence: confidence, Origin: domain.OriginBuiltin}, true
	}

	return domain.Pattern{Name: "platform_consolidation", Category: domain.PatternNeutral, Confidence: 60, Origin: domain.OriginBuiltin}, true
}

// detectVReversal requires five strictly declining closes followed by a
// single candle with at least a 5% net gain.
func (d *ChartDetector) detectVReversal(candles []domain.Candle) (domain.Pattern, bool) {
	if len(candles) < 6 {
		return domain.Pattern{}, false
	}
	tail := candles[len(candles)-6:]

	for i := 1; i < 5; i++ {
		if tail[i].Close >= tail[i-1].Close {
			return domain.Pattern{}, false
		}
	}

	last := tail[5]
	if last.Open == 0 {
		return domain.Pattern{}, false
	}
	gain := (last.Close - last.Open) / last.Open
	if gain < 0.05 {
		return domain.Pattern{}, false
	}

	confidence := 70.0
	var sumVol float64
	for _, c := range tail[:5] {
		sumVol += c.Volume
	}
	avgVol := sumVol / 5
	if avgVol > 0 && last.Volume > avgVol*1.5 {
		confidence += 10 // volume confirmation
	}
	if gain >= 0.08 {
		confidence += 5
	}

	return domain.Pattern{Name: "v_reversal", Category: domain.PatternBullish, Confidence: confidence, Origin: domain.OriginBuiltin}, true
}

func lowestLowIndex(candles []domain.Candle) int {
	idx := 0
	for i, c := range candles {
		if c.Low < candles[idx].Low {
			idx = i
		}
	}
	return idx
}

func highestHighIndex(candles []domain.Candle) int {
	idx := 0
	for i, c := range candles {
		if c.High > candles[idx].High {
			idx = i
		}
	}
	return idx
}
