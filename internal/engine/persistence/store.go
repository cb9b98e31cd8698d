// Package persistence is the Engine's read-modify-write bridge to the
// shared relational store: one row per (fixture_id, bookmaker), upserted
// on every update.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/oddspipeline/pkg/models"
)

// Store wraps the canonical_odds table.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and configures the connection pool the way
// every teacher service in this lineage does it.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureFixtureOddsRecord creates the row for (fixtureID, bookmaker) if
// it doesn't exist, with empty odds_x12/ah/ou arrays, the current line
// set, and the initial bookie_id/decimals.
func (s *Store) EnsureFixtureOddsRecord(ctx context.Context, fixtureID, bookieID int64, bookmaker string, decimals int, lines models.LinesEntry, t int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM canonical_odds WHERE fixture_id = $1 AND bookie = $2)`,
		fixtureID, bookmaker,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing odds row: %w", err)
	}
	if exists {
		return nil
	}

	linesJSON, err := json.Marshal([]models.LinesEntry{lines})
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO canonical_odds (
			fixture_id, bookie_id, bookie, decimals,
			odds_x12, odds_ah, odds_ou, lines, ids, max_stakes, latest_t, updated_at
		) VALUES ($1, $2, $3, $4, '[]', '[]', '[]', $5, '[]', '[]', '{}', NOW())`,
		fixtureID, bookieID, bookmaker, decimals, linesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert odds row: %w", err)
	}
	return nil
}

// ExistingRow is the read half of a read-modify-write cycle.
type ExistingRow struct {
	OddsX12   []models.X12Entry
	OddsAH    []models.AHEntry
	OddsOU    []models.OUEntry
	Lines     []models.LinesEntry
	IDs       []models.IDsEntry
	MaxStakes []models.MaxStakesEntry
	LatestT   models.LatestT
}

// ReadRow fetches the current columns for (fixtureID, bookmaker) inside
// a transaction, row-locked for the duration of the read-modify-write.
func (s *Store) ReadRow(ctx context.Context, tx *sql.Tx, fixtureID int64, bookmaker string) (*ExistingRow, error) {
	var x12JSON, ahJSON, ouJSON, linesJSON, idsJSON, stakesJSON, latestTJSON []byte

	err := tx.QueryRowContext(ctx,
		`SELECT odds_x12, odds_ah, odds_ou, lines, ids, max_stakes, latest_t
		 FROM canonical_odds WHERE fixture_id = $1 AND bookie = $2 FOR UPDATE`,
		fixtureID, bookmaker,
	).Scan(&x12JSON, &ahJSON, &ouJSON, &linesJSON, &idsJSON, &stakesJSON, &latestTJSON)
	if err != nil {
		return nil, fmt.Errorf("read odds row: %w", err)
	}

	row := &ExistingRow{}
	if err := unmarshalIfPresent(x12JSON, &row.OddsX12); err != nil {
		return nil, fmt.Errorf("parse odds_x12: %w", err)
	}
	if err := unmarshalIfPresent(ahJSON, &row.OddsAH); err != nil {
		return nil, fmt.Errorf("parse odds_ah: %w", err)
	}
	if err := unmarshalIfPresent(ouJSON, &row.OddsOU); err != nil {
		return nil, fmt.Errorf("parse odds_ou: %w", err)
	}
	if err := unmarshalIfPresent(linesJSON, &row.Lines); err != nil {
		return nil, fmt.Errorf("parse lines: %w", err)
	}
	if err := unmarshalIfPresent(idsJSON, &row.IDs); err != nil {
		return nil, fmt.Errorf("parse ids: %w", err)
	}
	if err := unmarshalIfPresent(stakesJSON, &row.MaxStakes); err != nil {
		return nil, fmt.Errorf("parse max_stakes: %w", err)
	}
	if err := unmarshalIfPresent(latestTJSON, &row.LatestT); err != nil {
		return nil, fmt.Errorf("parse latest_t: %w", err)
	}
	return row, nil
}

func unmarshalIfPresent(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// WriteRow writes back the merged columns inside the same transaction
// ReadRow used, then commits.
func (s *Store) WriteRow(ctx context.Context, tx *sql.Tx, fixtureID int64, bookmaker string, row *ExistingRow) error {
	x12JSON, err := json.Marshal(row.OddsX12)
	if err != nil {
		return fmt.Errorf("marshal odds_x12: %w", err)
	}
	ahJSON, err := json.Marshal(row.OddsAH)
	if err != nil {
		return fmt.Errorf("marshal odds_ah: %w", err)
	}
	ouJSON, err := json.Marshal(row.OddsOU)
	if err != nil {
		return fmt.Errorf("marshal odds_ou: %w", err)
	}
	linesJSON, err := json.Marshal(row.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}
	idsJSON, err := json.Marshal(row.IDs)
	if err != nil {
		return fmt.Errorf("marshal ids: %w", err)
	}
	stakesJSON, err := json.Marshal(row.MaxStakes)
	if err != nil {
		return fmt.Errorf("marshal max_stakes: %w", err)
	}
	latestTJSON, err := json.Marshal(row.LatestT)
	if err != nil {
		return fmt.Errorf("marshal latest_t: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE canonical_odds SET
			odds_x12 = $1, odds_ah = $2, odds_ou = $3, lines = $4,
			ids = $5, max_stakes = $6, latest_t = $7, updated_at = NOW()
		 WHERE fixture_id = $8 AND bookie = $9`,
		x12JSON, ahJSON, ouJSON, linesJSON, idsJSON, stakesJSON, latestTJSON,
		fixtureID, bookmaker,
	)
	if err != nil {
		return fmt.Errorf("update odds row: %w", err)
	}
	return nil
}

// WithTx runs fn inside a serializable transaction, committing on
// success and rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// BatchExistingOdds fetches whether a row already exists for each of a
// set of fixture ids, for one bookmaker, in a single query — used by
// the Pinnacle poll cycle to avoid N lookups per cycle.
func (s *Store) BatchExistingOdds(ctx context.Context, fixtureIDs []int64, bookmaker string) (map[int64]bool, error) {
	out := make(map[int64]bool, len(fixtureIDs))
	if len(fixtureIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fixture_id FROM canonical_odds WHERE bookie = $1 AND fixture_id = ANY($2)`,
		bookmaker, pq.Array(fixtureIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("batch existing odds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fixture id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
