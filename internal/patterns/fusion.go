package patterns

import (
	"strings"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

const (
	fusionBaseConfidence = 75.0
	fusionMaxConfidence  = 95.0
	conflictCeiling      = 30.0
)

// FusionResult is the combined outcome of one pattern evaluation.
type FusionResult struct {
	Signals    []domain.FusionSignal
	Patterns   []domain.Pattern
	Confidence float64
	Summary    string
}

// Strongest returns the highest-confidence fusion signal, or nil.
func (r *FusionResult) Strongest() *domain.FusionSignal {
	var best *domain.FusionSignal
	for i := range r.Signals {
		if best == nil || r.Signals[i].Confidence > best.Confidence {
			best = &r.Signals[i]
		}
	}
	return best
}

// Fuse combines candlestick and chart detector outputs with indicator
// context. A fused directional signal requires both families to agree; a
// cross-direction disagreement produces a low-confidence conflict signal.
func Fuse(candle, chart []domain.Pattern, snap domain.IndicatorSnapshot, volumeRatio float64) FusionResult {
	result := FusionResult{Patterns: append(append([]domain.Pattern{}, candle...), chart...)}

	if len(result.Patterns) == 0 {
		return result
	}

	bullCandle := strongestOf(candle, domain.PatternBullish)
	bearCandle := strongestOf(candle, domain.PatternBearish)
	bullChart := strongestOf(chart, domain.PatternBullish)
	bearChart := strongestOf(chart, domain.PatternBearish)

	if bullCandle != nil && bullChart != nil {
		conf := fusionBaseConfidence
		if snap.RSI < 35 {
			conf += 5 // oversold alignment
		}
		if snap.PlusDI > snap.MinusDI {
			conf += 5
		}
		if volumeRatio > 1.5 {
			conf += 5
		}
		if snap.ADX > 20 {
			conf += 5
		}
		result.Signals = append(result.Signals, domain.FusionSignal{
			Kind:               domain.FusionBullish,
			Confidence:         capAt(conf, fusionMaxConfidence),
			SupportingPatterns: []string{bullCandle.Name, bullChart.Name},
		})
	}

	if bearCandle != nil && bearChart != nil {
		conf := fusionBaseConfidence
		if snap.RSI > 65 {
			conf += 5 // overbought alignment
		}
		if snap.MinusDI > snap.PlusDI {
			conf += 5
		}
		if volumeRatio > 1.5 {
			conf += 5
		}
		if snap.ADX > 20 {
			conf += 5
		}
		result.Signals = append(result.Signals, domain.FusionSignal{
			Kind:               domain.FusionBearish,
			Confidence:         capAt(conf, fusionMaxConfidence),
			SupportingPatterns: []string{bearCandle.Name, bearChart.Name},
		})
	}

	// Cross-direction disagreement with no agreement at all: emit a conflict
	// signal that downstream consumers must treat as a reason to stand down.
	if len(result.Signals) == 0 {
		if (bullCandle != nil && bearChart != nil) || (bearCandle != nil && bullChart != nil) {
			var supporting []string
			for _, p := range []*domain.Pattern{bullCandle, bearChart, bearCandle, bullChart} {
				if p != nil {
					supporting = append(supporting, p.Name)
				}
			}
			result.Signals = append(result.Signals, domain.FusionSignal{
				Kind:               domain.FusionConflict,
				Confidence:         conflictCeiling,
				SupportingPatterns: supporting,
			})
		}
	}

	if best := result.Strongest(); best != nil {
		result.Confidence = best.Confidence
	} else {
		sum := 0.0
		for _, p := range result.Patterns {
			sum += p.Confidence
		}
		conf := sum / float64(len(result.Patterns))
		if volumeRatio > 1.5 {
			conf += 5
		}
		if snap.ADX > 25 {
			conf += 5
		}
		result.Confidence = capAt(conf, fusionMaxConfidence)
	}

	names := make([]string, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		names = append(names, p.Name)
	}
	result.Summary = strings.Join(names, ", ")

	return result
}

// strongestOf picks the highest-confidence pattern of the given category.
func strongestOf(patterns []domain.Pattern, category domain.PatternCategory) *domain.Pattern {
	var best *domain.Pattern
	for i := range patterns {
		if patterns[i].Category != category {
			continue
		}
		if best == nil || patterns[i].Confidence > best.Confidence {
			best = &patterns[i]
		}
	}
	return best
}

func capAt(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
