package indicator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/indicator"
)

func TestRSI_InsufficientData(t *testing.T) {
	// Fewer than period+1 closes must return exactly the neutral default.
	for n := 0; n <= 14; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		if got := indicator.RSI(closes, 14); got != 50.0 {
			t.Errorf("RSI with %d closes: expected 50, got %f", n, got)
		}
	}
}

func TestRSI_AllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := indicator.RSI(closes, 14); got != 100.0 {
		t.Errorf("Expected RSI 100 with zero losses, got %f", got)
	}
}

func TestRSI_RisesWithGains(t *testing.T) {
	// A series where gains increasingly dominate losses should push RSI up.
	base := []float64{100, 98, 99, 101, 103, 102, 104, 106, 105, 107, 109, 108, 110, 112, 111}

	prev := indicator.RSI(base, 14)
	series := append([]float64{}, base...)
	last := series[len(series)-1]
	for i := 0; i < 5; i++ {
		last += 2
		series = append(series, last)
		cur := indicator.RSI(series, 14)
		if cur <= prev {
			t.Fatalf("RSI did not increase: step %d, prev %f, cur %f", i, prev, cur)
		}
		prev = cur
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{100, 95, 97, 92, 96, 91, 94, 89, 93, 88, 92, 87, 91, 86, 90, 85}
	rsi := indicator.RSI(closes, 14)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestEMA(t *testing.T) {
	// Too few values -> 0
	if got := indicator.EMA([]float64{1, 2, 3}, 5); got != 0 {
		t.Errorf("Expected 0 for insufficient data, got %f", got)
	}

	// Exactly period values -> simple average seed
	values := []float64{2, 4, 6, 8, 10}
	if got := indicator.EMA(values, 5); got != 6 {
		t.Errorf("Expected SMA seed 6, got %f", got)
	}

	// One extra value: ema = seed + (v-seed)*2/(n+1)
	values = append(values, 12)
	want := 6 + (12-6)*2.0/6.0
	got := indicator.EMA(values, 5)
	assert.InDelta(t, want, got, 1e-9)
}

func TestEMASeries_AlignsWithEMA(t *testing.T) {
	values := []float64{5, 7, 6, 8, 9, 11, 10, 12, 13, 12}
	series := indicator.EMASeries(values, 5)

	if len(series) != len(values) {
		t.Fatalf("series length %d != %d", len(series), len(values))
	}
	for i := 0; i < 4; i++ {
		if series[i] != 0 {
			t.Errorf("series[%d] = %f, expected 0 before seed", i, series[i])
		}
	}
	// The final series value must match the plain EMA over the full input.
	assert.InDelta(t, indicator.EMA(values, 5), series[len(series)-1], 1e-9)
}

func testCandles(n int, start float64, step float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	price := start
	for i := range candles {
		candles[i] = domain.Candle{
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + step/2,
			Volume: 1000,
		}
		price += step
	}
	return candles
}

func TestADX_InsufficientData(t *testing.T) {
	res := indicator.ADX(testCandles(10, 100, 1), 14)
	if res.ADX != 0 || res.PlusDI != 0 || res.MinusDI != 0 {
		t.Errorf("Expected zero result for insufficient data, got %+v", res)
	}
}

func TestADX_BoundsAndDeterminism(t *testing.T) {
	candles := testCandles(60, 100, 0.8)
	res := indicator.ADX(candles, 14)

	assert.GreaterOrEqual(t, res.PlusDI, 0.0)
	assert.LessOrEqual(t, res.PlusDI, 100.0)
	assert.GreaterOrEqual(t, res.MinusDI, 0.0)
	assert.LessOrEqual(t, res.MinusDI, 100.0)
	assert.GreaterOrEqual(t, res.ADX, 0.0)
	assert.LessOrEqual(t, res.ADX, 100.0)

	// Deterministic given identical input
	again := indicator.ADX(candles, 14)
	assert.Equal(t, res, again)
}

func TestADX_UptrendFavorsPlusDI(t *testing.T) {
	res := indicator.ADX(testCandles(60, 100, 2), 14)
	if res.PlusDI <= res.MinusDI {
		t.Errorf("Expected PlusDI > MinusDI in steady uptrend, got +DI %f -DI %f", res.PlusDI, res.MinusDI)
	}
}

func TestATR(t *testing.T) {
	if got := indicator.ATR(testCandles(10, 100, 1), 14); got != 0 {
		t.Errorf("Expected 0 for insufficient data, got %f", got)
	}

	// Flat candles with a constant 2.0 high-low range: ATR = 2
	candles := make([]domain.Candle, 20)
	for i := range candles {
		candles[i] = domain.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	got := indicator.ATR(candles, 14)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestSnapshot(t *testing.T) {
	candles := testCandles(60, 100, 0.5)
	snap := indicator.Snapshot(candles)

	if snap.EMA7 == 0 || snap.EMA25 == 0 {
		t.Error("Expected non-zero EMAs for a 60 candle series")
	}
	if snap.EMA7 <= snap.EMA25 {
		t.Errorf("Expected EMA7 > EMA25 in an uptrend, got %f vs %f", snap.EMA7, snap.EMA25)
	}
	assert.Greater(t, snap.EMAGap(), 0.0)
}
