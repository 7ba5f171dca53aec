package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/agent"
)

// DBPool abstracts pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists finished runs and their transcripts in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS agent_runs (
    id               UUID PRIMARY KEY,
    task             TEXT NOT NULL,
    success          BOOLEAN NOT NULL,
    message          TEXT NOT NULL DEFAULT '',
    failure_code     TEXT NOT NULL DEFAULT '',
    total_steps      INTEGER NOT NULL,
    actions_executed INTEGER NOT NULL,
    duration_ms      BIGINT NOT NULL,
    started_at       TIMESTAMPTZ NOT NULL,
    finished_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS agent_runs_started_at_idx ON agent_runs (started_at DESC);
CREATE TABLE IF NOT EXISTS agent_run_entries (
    run_id      UUID NOT NULL REFERENCES agent_runs (id) ON DELETE CASCADE,
    seq         BIGINT NOT NULL,
    kind        TEXT NOT NULL,
    step        INTEGER NOT NULL,
    content     TEXT NOT NULL,
    action      JSONB,
    outcome     JSONB,
    recorded_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, seq)
);`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const insertRunSQL = `
INSERT INTO agent_runs (id, task, success, message, failure_code, total_steps, actions_executed, duration_ms, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

var entryColumns = []string{"run_id", "seq", "kind", "step", "content", "action", "outcome", "recorded_at"}

// SaveRun inserts the run and its entries in one transaction.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, insertRunSQL,
		rec.RunID, rec.Task, rec.Success, rec.Message, string(rec.FailureCode),
		rec.TotalSteps, rec.ActionsExecuted, rec.Duration.Milliseconds(),
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(rec.Entries) > 0 {
		rows := make([][]any, len(rec.Entries))
		for i, e := range rec.Entries {
			rows[i] = []any{rec.RunID, int64(e.Seq), e.Kind, e.Step, e.Content, nullJSON(e.Action), nullJSON(e.Outcome), e.At.UTC()}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"agent_run_entries"}, entryColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy run entries: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied entries count: expected %d, got %d", len(rows), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run persisted.", zap.String("run_id", rec.RunID), zap.Int("entries", len(rec.Entries)))
	return nil
}

const listRunsSQL = `
SELECT id, task, success, message, failure_code, total_steps, actions_executed, duration_ms, started_at, finished_at
FROM agent_runs
ORDER BY started_at DESC
LIMIT $1;`

// ListRuns returns the most recent runs, newest first, without entries.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var code string
		var durationMs int64
		if err := rows.Scan(&r.RunID, &r.Task, &r.Success, &r.Message, &code,
			&r.TotalSteps, &r.ActionsExecuted, &durationMs, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.FailureCode = agent.ErrorCode(code)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}

// nullJSON encodes v, mapping nil pointers to SQL NULL.
func nullJSON(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return b
}
