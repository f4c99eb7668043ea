package patterns_test

import (
	"testing"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
)

func hasPattern(found []domain.Pattern, name string) bool {
	for _, p := range found {
		if p.Name == name {
			return true
		}
	}
	return false
}

func TestCandlestick_Hammer(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	candles := []domain.Candle{
		{Open: 100, High: 100.5, Low: 94.5, Close: 95}, // down candle
		{Open: 94, High: 94.6, Low: 92, Close: 94.5},   // long lower wick, tiny body
	}

	found := d.Detect(candles)
	if !hasPattern(found, "hammer") {
		t.Errorf("Expected hammer, got %v", found)
	}
}

func TestCandlestick_ShootingStar(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	candles := []domain.Candle{
		{Open: 95, High: 100.5, Low: 94.5, Close: 100}, // up candle
		{Open: 100.5, High: 103.5, Low: 100.49, Close: 100.6},
	}

	found := d.Detect(candles)
	if !hasPattern(found, "shooting_star") {
		t.Errorf("Expected shooting_star, got %v", found)
	}
}

func TestCandlestick_BullishEngulfing(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	candles := []domain.Candle{
		{Open: 100, High: 100.5, Low: 96.5, Close: 97},
		{Open: 96.5, High: 101, Low: 96, Close: 100.5},
	}

	found := d.Detect(candles)
	if !hasPattern(found, "bullish_engulfing") {
		t.Errorf("Expected bullish_engulfing, got %v", found)
	}
}

func TestCandlestick_MorningStar(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	candles := []domain.Candle{
		{Open: 100, High: 100.5, Low: 91.5, Close: 92},
		{Open: 91.5, High: 92.8, Low: 91.2, Close: 92.5},
		{Open: 93, High: 99.5, Low: 92.8, Close: 99},
	}

	found := d.Detect(candles)
	if !hasPattern(found, "morning_star") {
		t.Errorf("Expected morning_star, got %v", found)
	}
}

func TestCandlestick_Doji(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	candles := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100, High: 101, Low: 99, Close: 100.05},
	}

	found := d.Detect(candles)
	if !hasPattern(found, "doji") {
		t.Errorf("Expected doji, got %v", found)
	}

	for _, p := range found {
		if p.Name == "doji" && p.Category != domain.PatternNeutral {
			t.Errorf("Doji should be neutral, got %s", p.Category)
		}
	}
}

func TestCandlestick_NoFalsePositiveOnTrend(t *testing.T) {
	d := patterns.NewCandlestickDetector()

	// Two plain full-body up candles: no reversal shape applies.
	candles := []domain.Candle{
		{Open: 100, High: 102, Low: 100, Close: 102},
		{Open: 102, High: 104, Low: 102, Close: 104},
	}

	found := d.Detect(candles)
	if len(found) != 0 {
		t.Errorf("Expected no patterns, got %v", found)
	}
}
