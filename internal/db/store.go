package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/g960059/sadb/internal/model"
)

var ErrInvalidRun = errors.New("invalid run record")

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) InsertRun(ctx context.Context, run model.RunRecord) error {
	if strings.TrimSpace(run.RunID) == "" || strings.TrimSpace(run.Device) == "" {
		return ErrInvalidRun
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}
	args := run.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal run args: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs(run_id, batch_id, kind, device, args_json, exit_code, outcome, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.RunID, run.BatchID, string(run.Kind), run.Device, string(argsJSON), run.ExitCode, string(run.Outcome), ts(run.StartedAt), ts(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

type RunFilter struct {
	Device string
	Limit  int
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT run_id, batch_id, kind, device, args_json, exit_code, outcome, started_at, finished_at FROM runs`
	args := make([]any, 0, 2)
	if filter.Device != "" {
		query += ` WHERE device = ?`
		args = append(args, filter.Device)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]model.RunRecord, 0)
	for rows.Next() {
		var (
			run                 model.RunRecord
			kind, outcome       string
			argsJSON            string
			startedAt, finished string
		)
		if err := rows.Scan(&run.RunID, &run.BatchID, &kind, &run.Device, &argsJSON, &run.ExitCode, &outcome, &startedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Kind = model.RunKind(kind)
		run.Outcome = model.RunOutcome(outcome)
		if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
			return nil, fmt.Errorf("decode run args: %w", err)
		}
		if run.StartedAt, err = parseTS(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = parseTS(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// PruneRuns deletes runs that started before cutoff and reports how many were removed.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, ts(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs rows affected: %w", err)
	}
	return n, nil
}

// tsLayout is fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
