package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/indicator"
)

// ScorerConfig holds the tunable thresholds of the ambush scorer.
type ScorerConfig struct {
	AdmissionScore    int     `yaml:"admission_score"`     // composite threshold for watchlist admission
	FallbackSlowScore int     `yaml:"fallback_slow_score"` // slow-only threshold when fast data is missing
	MinQuoteVolume    float64 `yaml:"min_quote_volume"`    // liquidity floor, quote units per bar
	SlowWeight        float64 `yaml:"slow_weight"`
	FastWeight        float64 `yaml:"fast_weight"`
	FastBonusWeight   float64 `yaml:"fast_bonus_weight"`
}

// DefaultScorerConfig mirrors the calibrated production values. The composite
// formula intentionally counts the fast score twice; treat the weights as
// calibration parameters rather than a bug to fix.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		AdmissionScore:    7,
		FallbackSlowScore: 8,
		MinQuoteVolume:    1_000_000,
		SlowWeight:        0.7,
		FastWeight:        0.3,
		FastBonusWeight:   0.5,
	}
}

// ScoreResult is the outcome of scoring one symbol across both cadences.
type ScoreResult struct {
	SlowScore     int
	FastScore     int
	Composite     int
	FastAvailable bool
	Reasons       []string
}

// Admissible reports whether the result clears the watchlist admission bar.
func (r ScoreResult) Admissible(cfg ScorerConfig) bool {
	if !r.FastAvailable {
		return r.SlowScore >= cfg.FallbackSlowScore
	}
	return r.Composite >= cfg.AdmissionScore
}

// AmbushScorer runs the two rule-based cadence scorers and combines them
// into the composite admission score.
type AmbushScorer struct {
	cfg ScorerConfig
}

func NewAmbushScorer(cfg ScorerConfig) *AmbushScorer {
	return &AmbushScorer{cfg: cfg}
}

// Score evaluates a symbol from its slow- and fast-cadence candle series.
// fastCandles may be nil when the fast series is unavailable.
func (s *AmbushScorer) Score(slowCandles, fastCandles []domain.Candle) ScoreResult {
	result := ScoreResult{}

	var slowReasons, fastReasons []string
	result.SlowScore, slowReasons = s.scoreSlow(slowCandles)

	if len(fastCandles) >= minScoreCandles {
		result.FastAvailable = true
		result.FastScore, fastReasons = s.scoreFast(fastCandles)
	}

	fast := float64(result.FastScore)
	composite := float64(result.SlowScore)*s.cfg.SlowWeight + fast*s.cfg.FastWeight + fast*s.cfg.FastBonusWeight
	result.Composite = int(math.Round(composite))
	result.Reasons = append(slowReasons, fastReasons...)

	return result
}

const minScoreCandles = 30

// scoreSlow produces the 0..15 structural bottoming score.
func (s *AmbushScorer) scoreSlow(candles []domain.Candle) (int, []string) {
	if len(candles) < minScoreCandles {
		return 0, nil
	}

	closes := indicator.Closes(candles)
	last := closes[len(closes)-1]
	score := 0
	var reasons []string

	// Deep pullback from a recent high
	if high := maxHigh(candles, 60); high > 0 {
		drop := (high - last) / high
		if drop > 0.30 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("pullback %.0f%% from high", drop*100))
		} else if drop > 0.20 {
			score++
			reasons = append(reasons, fmt.Sprintf("pullback %.0f%% from high", drop*100))
		}
	}

	// Proximity to the longer-window low
	if low := minLow(candles, 60); low > 0 {
		above := (last - low) / low
		if above < 0.10 {
			score += 2
			reasons = append(reasons, "near long-window low")
		} else if above < 0.15 {
			score++
		}
	}

	ema7s := indicator.EMASeries(closes, 7)
	ema25s := indicator.EMASeries(closes, 25)
	gap := emaGapAt(ema7s, ema25s, len(closes)-1)

	// Negative but narrowing EMA gap
	if gap < 0 {
		switch abs := -gap; {
		case abs < 0.02:
			score += 3
			reasons = append(reasons, "ema gap closing")
		case abs < 0.05:
			score += 2
		default:
			score++
		}
	}

	// RSI recovering from oversold while rising
	rsi := indicator.RSI(closes, 14)
	prevRSI := indicator.RSI(closes[:len(closes)-1], 14)
	if rsi > prevRSI {
		if rsi >= 40 && rsi <= 55 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("rsi recovering %.1f", rsi))
		} else if rsi >= 35 && rsi <= 60 {
			score++
		}
	}

	// Extended consolidation below EMA25
	barsBelow := 0
	for i := len(closes) - 1; i >= 25; i-- {
		if ema25s[i] == 0 || closes[i] >= ema25s[i] {
			break
		}
		barsBelow++
	}
	if barsBelow >= 10 {
		score += 2
		reasons = append(reasons, fmt.Sprintf("%d bars below ema25", barsBelow))
	} else if barsBelow >= 7 {
		score++
	}

	// Moderate volume warm-up: recent volume hotter than baseline but not euphoric
	vols := indicator.Volumes(candles)
	if len(vols) >= 25 {
		recent := indicator.Average(vols[len(vols)-5:])
		prior := indicator.Average(vols[len(vols)-25 : len(vols)-5])
		if prior > 0 {
			if ratio := recent / prior; ratio >= 1.2 && ratio <= 1.8 {
				score++
				reasons = append(reasons, "volume warming up")
			}
		}
	}

	// Liquidity floor on quote volume
	if avgQuote := avgQuoteVolume(candles, 24); avgQuote >= s.cfg.MinQuoteVolume {
		score++
	}

	// Bounded recent volatility
	if len(closes) >= 25 {
		ref := closes[len(closes)-25]
		if ref > 0 && math.Abs(last/ref-1) < 0.15 {
			score++
		}
	}

	// Fast EMA turning up
	if ema7s[len(ema7s)-1] > ema7s[len(ema7s)-2] && ema7s[len(ema7s)-2] != 0 {
		score++
	}

	return score, reasons
}

// scoreFast produces the 0..10 near-term confirmation score.
func (s *AmbushScorer) scoreFast(candles []domain.Candle) (int, []string) {
	if len(candles) < minScoreCandles {
		return 0, nil
	}

	closes := indicator.Closes(candles)
	last := closes[len(closes)-1]
	score := 0
	var reasons []string

	ema7s := indicator.EMASeries(closes, 7)
	ema25s := indicator.EMASeries(closes, 25)
	gap := emaGapAt(ema7s, ema25s, len(closes)-1)
	prevGap := emaGapAt(ema7s, ema25s, len(closes)-2)

	switch {
	case gap > 0:
		score += 3
		reasons = append(reasons, "ema crossed positive")
	case gap > -0.005:
		score += 2
		reasons = append(reasons, "ema gap near zero")
	case gap > prevGap:
		score++
	}

	rsi := indicator.RSI(closes, 14)
	prevRSI := indicator.RSI(closes[:len(closes)-1], 14)
	if rsi > prevRSI {
		if rsi >= 45 && rsi <= 60 {
			score += 2
			reasons = append(reasons, fmt.Sprintf("rsi normalizing %.1f", rsi))
		} else if rsi >= 40 && rsi <= 65 {
			score++
		}
	}

	// Volume acceleration: short recent window vs longer prior window
	vols := indicator.Volumes(candles)
	if len(vols) >= 24 {
		recent := indicator.Average(vols[len(vols)-6:])
		prior := indicator.Average(vols[len(vols)-24 : len(vols)-6])
		if prior > 0 {
			switch ratio := recent / prior; {
			case ratio >= 2.0:
				score += 2
				reasons = append(reasons, fmt.Sprintf("volume accelerating %.1fx", ratio))
			case ratio >= 1.5:
				score++
			}
		}
	}

	// 24-bar momentum in the ideal band
	if len(closes) >= 25 {
		ref := closes[len(closes)-25]
		if ref > 0 {
			mom := last/ref - 1
			if mom >= 0.05 && mom <= 0.15 {
				score += 2
				reasons = append(reasons, fmt.Sprintf("momentum %.1f%%", mom*100))
			} else if mom > 0 && mom < 0.05 {
				score++
			}
		}
	}

	// Volume-confirmed breakout of the recent high
	if len(candles) >= 25 {
		priorHigh := maxHigh(candles[:len(candles)-1], 24)
		avgVol := indicator.Average(vols[len(vols)-21 : len(vols)-1])
		if last > priorHigh && avgVol > 0 && candles[len(candles)-1].Volume >= avgVol*1.5 {
			score++
			reasons = append(reasons, "breakout of recent high")
		}
	}

	// Run of rising closes
	rising := 0
	for i := len(closes) - 1; i > 0; i-- {
		if closes[i] <= closes[i-1] {
			break
		}
		rising++
	}
	if rising >= 4 {
		score++
		reasons = append(reasons, fmt.Sprintf("%d rising closes", rising))
	}

	if score > 10 {
		score = 10
	}

	return score, reasons
}

func emaGapAt(ema7s, ema25s []float64, i int) float64 {
	if i < 0 || i >= len(ema25s) || ema25s[i] == 0 {
		return 0
	}
	return (ema7s[i] - ema25s[i]) / ema25s[i]
}

func maxHigh(candles []domain.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	high := 0.0
	for _, c := range candles[start:] {
		if c.High > high {
			high = c.High
		}
	}
	return high
}

func minLow(candles []domain.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	low := math.Inf(1)
	for _, c := range candles[start:] {
		if c.Low < low {
			low = c.Low
		}
	}
	if math.IsInf(low, 1) {
		return 0
	}
	return low
}

func avgQuoteVolume(candles []domain.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	sum := 0.0
	n := 0
	for _, c := range candles[start:] {
		sum += c.QuoteVolume
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
