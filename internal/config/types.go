package config

// Config is the process configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Executor  ExecutorConfig  `json:"executor"`

	// Journal controls the optional terminal-task journal.
	// If omitted, nothing is persisted.
	Journal *JournalConfig `json:"journal,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls tick cadence and batch fan-out.
//
// Schedule accepts the restricted 5-field dialect by default, or standard
// cron with a "cron:" prefix / "@" descriptor (see internal/cron).
type SchedulerConfig struct {
	Schedule string `json:"schedule"`

	// MaxLoops caps the number of ticks; <= 0 means run until stopped.
	MaxLoops int `json:"max_loops,omitempty"`

	// MaxConcurrent limits concurrent executor calls per batch; 0 = unlimited.
	MaxConcurrent int `json:"max_concurrent,omitempty"`
}

// ExecutorConfig controls per-task retry behavior.
//
// Defaults (when fields are omitted/zero):
//   - interval: "1s"
//   - max_interval: "1h"
//   - max_retries: 3
type ExecutorConfig struct {
	Interval    string `json:"interval,omitempty"`
	MaxInterval string `json:"max_interval,omitempty"`
	MaxRetries  int    `json:"max_retries,omitempty"`
}

// JournalConfig controls the optional persistence layer.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./msgpump_journal" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
