package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPositionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	pos := &domain.Position{
		ID:            domain.PositionID("SOLUSDT", domain.DirectionLong, created),
		Symbol:        "SOLUSDT",
		Direction:     domain.DirectionLong,
		EntryPrice:    100,
		EntrySnapshot: domain.IndicatorSnapshot{RSI: 55, EMA7: 101, EMA25: 99},
		ATR:           2,
		StopLoss:      97,
		TakeProfits:   [3]float64{104, 106, 110},
		HighWater:     100,
		FiredAlerts:   map[domain.PositionAlert]time.Time{domain.AlertTakeProfit1: created},
		CreatedAt:     created,
	}
	require.NoError(t, store.SavePosition(ctx, pos))

	// Upsert on the same id updates in place.
	pos.StopLoss = 104
	pos.HighWater = 107
	require.NoError(t, store.SavePosition(ctx, pos))

	positions, err := store.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	got := positions[0]
	assert.Equal(t, pos.ID, got.ID)
	assert.Equal(t, domain.DirectionLong, got.Direction)
	assert.Equal(t, 104.0, got.StopLoss)
	assert.Equal(t, 107.0, got.HighWater)
	assert.Equal(t, [3]float64{104, 106, 110}, got.TakeProfits)
	assert.Equal(t, 55.0, got.EntrySnapshot.RSI)
	assert.Contains(t, got.FiredAlerts, domain.AlertTakeProfit1)

	require.NoError(t, store.DeletePosition(ctx, pos.ID))
	positions, err = store.ListPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestWatchlistRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &domain.WatchlistEntry{
		Symbol:              "SOLUSDT",
		PrimaryScore:        8,
		SecondaryScore:      5,
		CompositeScore:      10,
		HighestScoreSeen:    10,
		AdmissionPrice:      99.8,
		SnapshotAtAdmission: domain.IndicatorSnapshot{RSI: 42},
		AddedAt:             time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveEntry(ctx, entry))

	// A rescore keeps the key and bumps scores.
	entry.CompositeScore = 12
	entry.HighestScoreSeen = 12
	entry.PreWarned = true
	require.NoError(t, store.SaveEntry(ctx, entry))

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 12, entries[0].CompositeScore)
	assert.Equal(t, 12, entries[0].HighestScoreSeen)
	assert.True(t, entries[0].PreWarned)
	assert.Equal(t, 42.0, entries[0].SnapshotAtAdmission.RSI)

	require.NoError(t, store.DeleteEntry(ctx, "SOLUSDT"))
	entries, err = store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestThrottleRoundTripAndReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &domain.ThrottleRecord{
		Symbol:      "SOLUSDT",
		Cadence:     "fast",
		Direction:   domain.DirectionLong,
		LastFiredAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		CountToday:  2,
	}
	require.NoError(t, store.SaveThrottle(ctx, rec))

	records, err := store.ListThrottles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].CountToday)
	assert.Equal(t, domain.DirectionLong, records[0].Direction)

	require.NoError(t, store.ResetDailyCounts(ctx))
	records, err = store.ListThrottles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].CountToday)
	// The cooldown timestamp survives the daily reset.
	assert.True(t, records[0].LastFiredAt.Equal(rec.LastFiredAt))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveEntry(ctx, &domain.WatchlistEntry{
		Symbol:         "SOLUSDT",
		CompositeScore: 9,
		AddedAt:        time.Now(),
	}))
	require.NoError(t, store.Close())

	// Schema init is idempotent on an existing database.
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SOLUSDT", entries[0].Symbol)
}
