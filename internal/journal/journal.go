// Package journal persists terminal task records for operator visibility.
//
// Only settled attempts are recorded; pending work never touches disk, so a
// restart starts from a clean slate.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"msgpump/internal/task"
	logx "msgpump/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal.
//
// Driver values:
//   - "file": append-only JSON Lines file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one terminal task attempt. Keep it compact and schema-stable.
type Record struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Retries     int       `json:"retries"`
	MaxRetries  int       `json:"max_retries"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	TookMS      int64     `json:"took_ms"`
}

// RecordOf flattens a terminal task into a Record.
func RecordOf(t *task.Task) Record {
	r := Record{
		ID:          t.ID(),
		Status:      string(t.Status()),
		Retries:     t.Retries(),
		MaxRetries:  t.MaxRetries(),
		StartedAt:   t.StartedAt(),
		CompletedAt: t.CompletedAt(),
	}
	if err := t.LastError(); err != nil {
		r.Error = err.Error()
	}
	if !t.CompletedAt().IsZero() {
		r.TookMS = t.CompletedAt().Sub(t.StartedAt()).Milliseconds()
	}
	return r
}

// Journal is the minimal persistence API used by the scheduler.
type Journal interface {
	Append(ctx context.Context, r Record) error
	Close() error
}

// Open initializes the configured journal.
// It returns (nil, nil) if the journal is disabled.
func Open(cfg Config, log logx.Logger) (Journal, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
