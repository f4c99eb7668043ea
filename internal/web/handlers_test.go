package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
	"github.com/vitos/crypto_ambush_bot/internal/patterns"
	"github.com/vitos/crypto_ambush_bot/internal/usecase"
)

type stubMarket struct{}

func (stubMarket) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return nil, nil
}
func (stubMarket) GetSymbols(ctx context.Context) ([]string, error) { return nil, nil }
func (stubMarket) LastPrice(symbol string) float64                  { return 0 }

type stubNotifier struct{}

func (stubNotifier) Send(ctx context.Context, alert *domain.Alert) error { return nil }

type stubWatchlistRepo struct{ entries map[string]domain.WatchlistEntry }

func newStubWatchlistRepo() *stubWatchlistRepo {
	return &stubWatchlistRepo{entries: make(map[string]domain.WatchlistEntry)}
}

func (r *stubWatchlistRepo) SaveEntry(ctx context.Context, entry *domain.WatchlistEntry) error {
	r.entries[entry.Symbol] = *entry
	return nil
}

func (r *stubWatchlistRepo) DeleteEntry(ctx context.Context, symbol string) error {
	delete(r.entries, symbol)
	return nil
}

func (r *stubWatchlistRepo) ListEntries(ctx context.Context) ([]*domain.WatchlistEntry, error) {
	return nil, nil
}

type stubPositionRepo struct{}

func (stubPositionRepo) SavePosition(ctx context.Context, pos *domain.Position) error { return nil }
func (stubPositionRepo) DeletePosition(ctx context.Context, id string) error          { return nil }
func (stubPositionRepo) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	return nil, nil
}

type stubThrottleRepo struct{}

func (stubThrottleRepo) SaveThrottle(ctx context.Context, rec *domain.ThrottleRecord) error {
	return nil
}
func (stubThrottleRepo) ListThrottles(ctx context.Context) ([]*domain.ThrottleRecord, error) {
	return nil, nil
}
func (stubThrottleRepo) ResetDailyCounts(ctx context.Context) error { return nil }

func newTestServer(t *testing.T) (*Server, *usecase.WatchlistService) {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	watchlist, err := usecase.NewWatchlistService(ctx, newStubWatchlistRepo(), usecase.DefaultWatchlistConfig(), logger)
	require.NoError(t, err)
	monitor, err := usecase.NewPositionMonitor(ctx, stubPositionRepo{}, usecase.DefaultMonitorConfig(), logger)
	require.NoError(t, err)
	governor, err := usecase.NewAlertGovernor(ctx, stubThrottleRepo{}, usecase.DefaultGovernorConfig(), logger)
	require.NoError(t, err)

	scorerCfg := usecase.DefaultScorerConfig()
	scanner := usecase.NewScannerService(
		stubMarket{},
		usecase.NewAmbushScorer(scorerCfg),
		scorerCfg,
		watchlist,
		monitor,
		governor,
		patterns.NewAnalyzer(nil, logger),
		stubNotifier{},
		usecase.DefaultScannerConfig(),
		logger,
	)

	return NewServer(0, scanner, watchlist, monitor, stubMarket{}, nil, logger), watchlist
}

func TestRemoveWatchlistSymbol(t *testing.T) {
	srv, watchlist := newTestServer(t)
	watchlist.Admit(context.Background(), "SOLUSDT", usecase.ScoreResult{Composite: 9}, 100, domain.IndicatorSnapshot{})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/watchlist/SOLUSDT", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, watchlist.Contains("SOLUSDT"))
}

func TestRemoveWatchlistUnknownSymbol(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/watchlist/GHOSTUSDT", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	srv, watchlist := newTestServer(t)
	watchlist.Admit(context.Background(), "SOLUSDT", usecase.ScoreResult{Composite: 9}, 100, domain.IndicatorSnapshot{})

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"watchlist_size":1`)
}
