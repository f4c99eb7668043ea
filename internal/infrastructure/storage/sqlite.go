package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price REAL NOT NULL,
			entry_snapshot TEXT NOT NULL DEFAULT '{}',
			atr REAL NOT NULL,
			stop_loss REAL NOT NULL,
			take_profit_1 REAL NOT NULL,
			take_profit_2 REAL NOT NULL,
			take_profit_3 REAL NOT NULL,
			high_water REAL NOT NULL DEFAULT 0,
			low_water REAL NOT NULL DEFAULT 0,
			fired_alerts TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol);`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			symbol TEXT PRIMARY KEY,
			primary_score INTEGER NOT NULL,
			secondary_score INTEGER NOT NULL,
			composite_score INTEGER NOT NULL,
			highest_score_seen INTEGER NOT NULL,
			admission_price REAL NOT NULL,
			snapshot TEXT NOT NULL DEFAULT '{}',
			added_at DATETIME NOT NULL,
			pre_warned BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS alert_throttle (
			symbol TEXT NOT NULL,
			cadence TEXT NOT NULL,
			direction TEXT NOT NULL,
			last_fired_at DATETIME NOT NULL,
			count_today INTEGER NOT NULL,
			PRIMARY KEY (symbol, cadence, direction)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	// Migration: older databases predate the water marks
	// We ignore the error if the column already exists
	_, _ = s.db.Exec(`ALTER TABLE positions ADD COLUMN high_water REAL NOT NULL DEFAULT 0`)
	_, _ = s.db.Exec(`ALTER TABLE positions ADD COLUMN low_water REAL NOT NULL DEFAULT 0`)
	_, _ = s.db.Exec(`ALTER TABLE watchlist ADD COLUMN pre_warned BOOLEAN NOT NULL DEFAULT 0`)

	return nil
}

// PositionRepository Implementation

func (s *SQLiteStore) SavePosition(ctx context.Context, pos *domain.Position) error {
	snapshot, err := json.Marshal(pos.EntrySnapshot)
	if err != nil {
		return err
	}
	fired, err := json.Marshal(pos.FiredAlerts)
	if err != nil {
		return err
	}

	query := `INSERT INTO positions (id, symbol, direction, entry_price, entry_snapshot, atr, stop_loss, take_profit_1, take_profit_2, take_profit_3, high_water, low_water, fired_alerts, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  stop_loss=excluded.stop_loss,
			  high_water=excluded.high_water,
			  low_water=excluded.low_water,
			  fired_alerts=excluded.fired_alerts`
	_, err = s.db.ExecContext(ctx, query,
		pos.ID, pos.Symbol, string(pos.Direction), pos.EntryPrice, string(snapshot), pos.ATR,
		pos.StopLoss, pos.TakeProfits[0], pos.TakeProfits[1], pos.TakeProfits[2],
		pos.HighWater, pos.LowWater, string(fired), pos.CreatedAt)
	return err
}

func (s *SQLiteStore) DeletePosition(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM positions WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT id, symbol, direction, entry_price, entry_snapshot, atr, stop_loss, take_profit_1, take_profit_2, take_profit_3, high_water, low_water, fired_alerts, created_at FROM positions`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		var p domain.Position
		var direction, snapshot, fired string
		if err := rows.Scan(&p.ID, &p.Symbol, &direction, &p.EntryPrice, &snapshot, &p.ATR,
			&p.StopLoss, &p.TakeProfits[0], &p.TakeProfits[1], &p.TakeProfits[2],
			&p.HighWater, &p.LowWater, &fired, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Direction = domain.Direction(direction)
		if err := json.Unmarshal([]byte(snapshot), &p.EntrySnapshot); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fired), &p.FiredAlerts); err != nil {
			return nil, err
		}
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

// WatchlistRepository Implementation

func (s *SQLiteStore) SaveEntry(ctx context.Context, entry *domain.WatchlistEntry) error {
	snapshot, err := json.Marshal(entry.SnapshotAtAdmission)
	if err != nil {
		return err
	}

	query := `INSERT INTO watchlist (symbol, primary_score, secondary_score, composite_score, highest_score_seen, admission_price, snapshot, added_at, pre_warned)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  primary_score=excluded.primary_score,
			  secondary_score=excluded.secondary_score,
			  composite_score=excluded.composite_score,
			  highest_score_seen=excluded.highest_score_seen,
			  pre_warned=excluded.pre_warned`
	_, err = s.db.ExecContext(ctx, query,
		entry.Symbol, entry.PrimaryScore, entry.SecondaryScore, entry.CompositeScore,
		entry.HighestScoreSeen, entry.AdmissionPrice, string(snapshot), entry.AddedAt, entry.PreWarned)
	return err
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM watchlist WHERE symbol = ?", symbol)
	return err
}

func (s *SQLiteStore) ListEntries(ctx context.Context) ([]*domain.WatchlistEntry, error) {
	query := `SELECT symbol, primary_score, secondary_score, composite_score, highest_score_seen, admission_price, snapshot, added_at, pre_warned FROM watchlist`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		var snapshot string
		if err := rows.Scan(&e.Symbol, &e.PrimaryScore, &e.SecondaryScore, &e.CompositeScore,
			&e.HighestScoreSeen, &e.AdmissionPrice, &snapshot, &e.AddedAt, &e.PreWarned); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(snapshot), &e.SnapshotAtAdmission); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ThrottleRepository Implementation

func (s *SQLiteStore) SaveThrottle(ctx context.Context, rec *domain.ThrottleRecord) error {
	query := `INSERT INTO alert_throttle (symbol, cadence, direction, last_fired_at, count_today)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(symbol, cadence, direction) DO UPDATE SET
			  last_fired_at=excluded.last_fired_at,
			  count_today=excluded.count_today`
	_, err := s.db.ExecContext(ctx, query,
		rec.Symbol, rec.Cadence, string(rec.Direction), rec.LastFiredAt, rec.CountToday)
	return err
}

func (s *SQLiteStore) ListThrottles(ctx context.Context) ([]*domain.ThrottleRecord, error) {
	query := `SELECT symbol, cadence, direction, last_fired_at, count_today FROM alert_throttle`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ThrottleRecord
	for rows.Next() {
		var r domain.ThrottleRecord
		var direction string
		var lastFired time.Time
		if err := rows.Scan(&r.Symbol, &r.Cadence, &direction, &lastFired, &r.CountToday); err != nil {
			return nil, err
		}
		r.Direction = domain.Direction(direction)
		r.LastFiredAt = lastFired
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ResetDailyCounts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE alert_throttle SET count_today = 0")
	return err
}
