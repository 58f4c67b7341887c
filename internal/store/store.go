// Package store persists review snapshots to Postgres.
//
// Every dataset replacement published by the workspace becomes one row in
// review_snapshots holding the full dataset as jsonb. Cell edits also write
// a review_edits row with the old and new value, so the history of a review
// can be reconstructed. A restarted server resumes a session from its newest
// snapshot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements core.Sink and core.Restorer.
type Store struct {
	db DB
}

var (
	_ core.Sink     = (*Store)(nil)
	_ core.Restorer = (*Store)(nil)
)

// New creates a Store over db, typically a *pgxpool.Pool.
func New(db DB) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS review_snapshots (
	id          UUID PRIMARY KEY,
	session_id  UUID NOT NULL,
	kind        TEXT NOT NULL,
	file_name   TEXT,
	row_count   INTEGER NOT NULL,
	rows        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS review_snapshots_session_idx
	ON review_snapshots (session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS review_edits (
	id          UUID PRIMARY KEY,
	snapshot_id UUID NOT NULL REFERENCES review_snapshots (id) ON DELETE CASCADE,
	session_id  UUID NOT NULL,
	row_id      INTEGER NOT NULL,
	field       TEXT NOT NULL,
	old_value   TEXT,
	new_value   TEXT,
	ip_address  INET,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS review_edits_session_idx
	ON review_edits (session_id, created_at DESC);
`

// Migrate creates the review tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate review schema: %w", err)
	}
	return nil
}

const insertSnapshot = `
INSERT INTO review_snapshots (id, session_id, kind, file_name, row_count, rows, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const insertEdit = `
INSERT INTO review_edits (id, snapshot_id, session_id, row_id, field, old_value, new_value, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Publish stores change as a snapshot, plus an edit row for cell edits, in
// one transaction.
func (s *Store) Publish(ctx context.Context, change core.Change) error {
	sessionID := toPgUUID(change.SessionID)
	if !sessionID.Valid {
		return fmt.Errorf("publish %s: invalid session id %q", change.Kind, change.SessionID)
	}

	rows, err := json.Marshal(datasetOrEmpty(change.Dataset))
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	snapshotID := uuid.New()
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSnapshot,
			newPgUUID(snapshotID),
			sessionID,
			string(change.Kind),
			toPgText(change.FileName),
			change.Dataset.Len(),
			rows,
			toPgTimestamptz(change.At),
		); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		if change.Kind != core.ChangeEdit {
			return nil
		}

		if _, err := tx.Exec(ctx, insertEdit,
			newPgUUID(uuid.New()),
			newPgUUID(snapshotID),
			sessionID,
			change.RowID,
			string(change.Field),
			toPgText(change.OldValue),
			toPgText(change.NewValue),
			parseIP(change.IPAddress),
			toPgText(change.UserAgent),
			toPgTimestamptz(change.At),
		); err != nil {
			return fmt.Errorf("insert edit: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", change.Kind, err)
	}
	return nil
}

const selectLatest = `
SELECT rows FROM review_snapshots
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT 1`

// Latest returns the newest snapshot for a session. ok is false when the
// session has none or its id is not a uuid.
func (s *Store) Latest(ctx context.Context, sessionID string) (core.Dataset, bool, error) {
	id := toPgUUID(sessionID)
	if !id.Valid {
		return nil, false, nil
	}

	var raw []byte
	if err := s.db.QueryRow(ctx, selectLatest, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load latest snapshot: %w", err)
	}

	var ds core.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return ds, true, nil
}

// datasetOrEmpty makes a nil dataset encode as [] rather than null.
func datasetOrEmpty(ds core.Dataset) core.Dataset {
	if ds == nil {
		return core.Dataset{}
	}
	return ds
}
