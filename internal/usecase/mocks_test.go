package usecase

import (
	"context"
	"sync"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// MockMarketData serves canned candle series keyed by symbol and interval.
type MockMarketData struct {
	mu      sync.Mutex
	Candles map[string][]domain.Candle // key: symbol + "|" + interval
	Symbols []string
	Prices  map[string]float64
	Errs    map[string]error
	Calls   int
}

func (m *MockMarketData) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	return m.Candles[symbol+"|"+interval], nil
}

func (m *MockMarketData) GetSymbols(ctx context.Context) ([]string, error) {
	return m.Symbols, nil
}

func (m *MockMarketData) LastPrice(symbol string) float64 {
	return m.Prices[symbol]
}

// MockNotifier records every alert it is asked to send.
type MockNotifier struct {
	mu     sync.Mutex
	Alerts []*domain.Alert
	Err    error
}

func (m *MockNotifier) Send(ctx context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockNotifier) Sent() []*domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Alert(nil), m.Alerts...)
}

// MockPositionRepo is an in-memory PositionRepository.
type MockPositionRepo struct {
	mu        sync.Mutex
	Positions map[string]domain.Position
	SaveErr   error
}

func NewMockPositionRepo() *MockPositionRepo {
	return &MockPositionRepo{Positions: make(map[string]domain.Position)}
}

func (m *MockPositionRepo) SavePosition(ctx context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Positions[pos.ID] = *pos
	return nil
}

func (m *MockPositionRepo) DeletePosition(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Positions, id)
	return nil
}

func (m *MockPositionRepo) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Position, 0, len(m.Positions))
	for _, p := range m.Positions {
		pos := p
		out = append(out, &pos)
	}
	return out, nil
}

// MockThrottleRepo is an in-memory ThrottleRepository.
type MockThrottleRepo struct {
	mu      sync.Mutex
	Records map[string]domain.ThrottleRecord
	Resets  int
}

func NewMockThrottleRepo() *MockThrottleRepo {
	return &MockThrottleRepo{Records: make(map[string]domain.ThrottleRecord)}
}

func (m *MockThrottleRepo) SaveThrottle(ctx context.Context, rec *domain.ThrottleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[domain.ThrottleKey(rec.Symbol, rec.Cadence, rec.Direction)] = *rec
	return nil
}

func (m *MockThrottleRepo) ListThrottles(ctx context.Context) ([]*domain.ThrottleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ThrottleRecord, 0, len(m.Records))
	for _, r := range m.Records {
		rec := r
		out = append(out, &rec)
	}
	return out, nil
}

func (m *MockThrottleRepo) ResetDailyCounts(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets++
	for k, r := range m.Records {
		r.CountToday = 0
		m.Records[k] = r
	}
	return nil
}

// MockWatchlistRepo is an in-memory WatchlistRepository.
type MockWatchlistRepo struct {
	mu      sync.Mutex
	Entries map[string]domain.WatchlistEntry
}

func NewMockWatchlistRepo() *MockWatchlistRepo {
	return &MockWatchlistRepo{Entries: make(map[string]domain.WatchlistEntry)}
}

func (m *MockWatchlistRepo) SaveEntry(ctx context.Context, entry *domain.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[entry.Symbol] = *entry
	return nil
}

func (m *MockWatchlistRepo) DeleteEntry(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, symbol)
	return nil
}

func (m *MockWatchlistRepo) ListEntries(ctx context.Context) ([]*domain.WatchlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.WatchlistEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		entry := e
		out = append(out, &entry)
	}
	return out, nil
}
