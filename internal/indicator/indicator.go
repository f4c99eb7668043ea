// Package indicator provides pure technical indicator calculations over
// candle data. All functions are deterministic and side-effect free; when a
// series is too short for the requested lookback they return a documented
// neutral default instead of an error.
package indicator

import (
	"math"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Returns 50 (neutral) if there are fewer than period+1 closes, and 100 when
// the smoothed average loss is exactly zero.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50.0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder of the series
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA calculates the Exponential Moving Average, seeded with a simple average
// of the first period values. Returns 0 if there is insufficient data.
func EMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// EMASeries returns the EMA value at every index. Indexes before period-1
// hold 0 since no value is defined there yet.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period || period <= 0 {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
		out[i] = ema
	}

	return out
}

// ADXResult holds the directional movement values.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX calculates the Average Directional Index with Wilder smoothing.
// Returns a zero-valued result if there are fewer than period+1 candles.
func ADX(candles []domain.Candle, period int) ADXResult {
	if len(candles) < period+1 || period <= 0 {
		return ADXResult{}
	}

	n := len(candles)
	trs := make([]float64, 0, n-1)
	plusDMs := make([]float64, 0, n-1)
	minusDMs := make([]float64, 0, n-1)

	for i := 1; i < n; i++ {
		cur, prev := candles[i], candles[i-1]

		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trs = append(trs, tr)

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	// Wilder-smoothed running sums, seeded with the first period bars.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += trs[i]
		smPlus += plusDMs[i]
		smMinus += minusDMs[i]
	}

	di := func() (float64, float64) {
		if smTR == 0 {
			return 0, 0
		}
		return 100 * smPlus / smTR, 100 * smMinus / smTR
	}

	dx := func(plusDI, minusDI float64) float64 {
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	plusDI, minusDI := di()
	adx := dx(plusDI, minusDI)

	for i := period; i < len(trs); i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDMs[i]
		smMinus = smMinus - smMinus/float64(period) + minusDMs[i]

		plusDI, minusDI = di()
		adx = (adx*float64(period-1) + dx(plusDI, minusDI)) / float64(period)
	}

	return ADXResult{ADX: adx, PlusDI: plusDI, MinusDI: minusDI}
}

// ATR calculates the Average True Range over the last period bars.
// Returns 0 if there are fewer than period+1 candles.
func ATR(candles []domain.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		trSum += tr
	}

	return trSum / float64(period)
}

// Snapshot computes the standard indicator set used by the scanner for one
// candle series.
func Snapshot(candles []domain.Candle) domain.IndicatorSnapshot {
	closes := Closes(candles)
	adx := ADX(candles, 14)
	return domain.IndicatorSnapshot{
		RSI:     RSI(closes, 14),
		EMA7:    EMA(closes, 7),
		EMA25:   EMA(closes, 25),
		ADX:     adx.ADX,
		PlusDI:  adx.PlusDI,
		MinusDI: adx.MinusDI,
	}
}

// Closes extracts the close series, oldest first.
func Closes(candles []domain.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Volumes extracts the volume series, oldest first.
func Volumes(candles []domain.Candle) []float64 {
	vols := make([]float64, len(candles))
	for i, c := range candles {
		vols[i] = c.Volume
	}
	return vols
}

// Average returns the arithmetic mean of values, or 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
