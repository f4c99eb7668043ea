package domain

import (
	"fmt"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// PositionAlert identifies one risk-trigger type. Each fires at most once per
// position, except AlertRSIExtreme which re-arms after a cool-off.
type PositionAlert string

const (
	AlertStopLoss        PositionAlert = "stop_loss"
	AlertTakeProfit1     PositionAlert = "take_profit_1"
	AlertTakeProfit2     PositionAlert = "take_profit_2"
	AlertTakeProfit3     PositionAlert = "take_profit_3"
	AlertRSIExtreme      PositionAlert = "rsi_extreme"
	AlertTrendReversal   PositionAlert = "trend_reversal"
	AlertPatternReversal PositionAlert = "pattern_reversal"
)

// Position is a user-declared open position under risk monitoring.
// Direction is immutable after creation. StopLoss may only be tightened.
type Position struct {
	ID            string                      `json:"id"`
	Symbol        string                      `json:"symbol"`
	Direction     Direction                   `json:"direction"`
	EntryPrice    float64                     `json:"entry_price"`
	EntrySnapshot IndicatorSnapshot           `json:"entry_snapshot"`
	ATR           float64                     `json:"atr"`
	StopLoss      float64                     `json:"stop_loss"`
	TakeProfits   [3]float64                  `json:"take_profits"`
	HighWater     float64                     `json:"high_water"`
	LowWater      float64                     `json:"low_water"`
	FiredAlerts   map[PositionAlert]time.Time `json:"fired_alerts"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// PositionID builds the composite store key.
func PositionID(symbol string, direction Direction, createdAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", symbol, direction, createdAt.Unix())
}

// PnLPercent returns the signed profit percentage at the given price.
func (p *Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pnl := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Direction == DirectionShort {
		pnl = -pnl
	}
	return pnl
}
