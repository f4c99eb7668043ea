package domain

type Candle struct {
	OpenTime    int64   `json:"open_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
	CloseTime   int64   `json:"close_time"`
}

// IndicatorSnapshot holds the indicator values computed for one symbol+interval
// during a single evaluation cycle. Recomputed every cycle; only the admission
// and entry snapshots are kept.
type IndicatorSnapshot struct {
	RSI     float64 `json:"rsi"`
	EMA7    float64 `json:"ema7"`
	EMA25   float64 `json:"ema25"`
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`
}

// EMAGap returns the relative distance between EMA7 and EMA25.
// Negative while the fast average is below the slow one.
func (s IndicatorSnapshot) EMAGap() float64 {
	if s.EMA25 == 0 {
		return 0
	}
	return (s.EMA7 - s.EMA25) / s.EMA25
}
