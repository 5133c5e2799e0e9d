package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "msgpump/pkg/logx"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS task_journal (
	id           TEXT NOT NULL,
	status       TEXT NOT NULL,
	retries      INTEGER NOT NULL,
	max_retries  INTEGER NOT NULL,
	err          TEXT,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	took_ms      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_journal_completed ON task_journal(completed_at);
`

type sqliteJournal struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Journal, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("journal.path is required for sqlite driver")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteJournal{db: db, log: log}, nil
}

func (j *sqliteJournal) Append(ctx context.Context, r Record) error {
	if j == nil || j.db == nil {
		return ErrDisabled
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO task_journal(id, status, retries, max_retries, err, started_at, completed_at, took_ms)
		 VALUES(?,?,?,?,?,?,?,?)`,
		r.ID, r.Status, r.Retries, r.MaxRetries, nullStr(r.Error),
		r.StartedAt.Format(time.RFC3339Nano), r.CompletedAt.Format(time.RFC3339Nano), r.TookMS,
	)
	return err
}

func (j *sqliteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
