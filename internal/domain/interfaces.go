package domain

import "context"

// MarketData defines the interface for the market-data collaborator.
// GetCandles must return candles strictly ordered oldest first.
type MarketData interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetSymbols(ctx context.Context) ([]string, error)
	// LastPrice returns the most recent streamed price for the symbol,
	// or 0 if no price has been observed yet.
	LastPrice(symbol string) float64
}

// Notifier delivers alert payloads. Failures are logged by the caller and not
// retried within the same cycle.
type Notifier interface {
	Send(ctx context.Context, alert *Alert) error
}

// PatternService is the optional external pattern-recognition collaborator.
type PatternService interface {
	Healthy(ctx context.Context) bool
	DetectPatterns(ctx context.Context, candles []Candle) ([]Pattern, error)
}

// PositionRepository defines storage operations for monitored positions.
type PositionRepository interface {
	SavePosition(ctx context.Context, pos *Position) error
	DeletePosition(ctx context.Context, id string) error
	ListPositions(ctx context.Context) ([]*Position, error)
}

// ThrottleRepository persists throttle records so cooldowns survive restarts.
type ThrottleRepository interface {
	SaveThrottle(ctx context.Context, rec *ThrottleRecord) error
	ListThrottles(ctx context.Context) ([]*ThrottleRecord, error)
	ResetDailyCounts(ctx context.Context) error
}

// WatchlistRepository persists the candidate pool between restarts.
type WatchlistRepository interface {
	SaveEntry(ctx context.Context, entry *WatchlistEntry) error
	DeleteEntry(ctx context.Context, symbol string) error
	ListEntries(ctx context.Context) ([]*WatchlistEntry, error)
}
