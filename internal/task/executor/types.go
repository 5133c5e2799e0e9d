package executor

import (
	"context"
	"time"

	"msgpump/internal/task"
)

// Config controls the retry executor.
//
// All knobs have working defaults; a zero Config retries up to 3 attempts
// with a 1s base backoff capped at 1h.
type Config struct {
	// Interval is the base backoff unit.
	Interval time.Duration

	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration

	// MaxRetries is the attempt ceiling per task (the first attempt counts).
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Parser converts a raw message into a structured payload.
//
// Any parser error is terminal: the executor wraps it as a task.ParsingError
// and fails the task without retrying.
type Parser interface {
	Parse(ctx context.Context, raw any) (any, error)
}

type ParserFunc func(ctx context.Context, raw any) (any, error)

func (f ParserFunc) Parse(ctx context.Context, raw any) (any, error) { return f(ctx, raw) }

// Handler performs the unit of work for a parsed task.
//
// Returning an error wrapped with task.Fatal stops retries immediately;
// any other error is retried until the task's retry ceiling.
type Handler interface {
	Handle(ctx context.Context, t *task.Task) (any, error)
}

type HandlerFunc func(ctx context.Context, t *task.Task) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, t *task.Task) (any, error) { return f(ctx, t) }

// NopParser passes the raw message through unchanged.
func NopParser() Parser {
	return ParserFunc(func(_ context.Context, raw any) (any, error) { return raw, nil })
}

// NopHandler succeeds without doing anything.
func NopHandler() Handler {
	return HandlerFunc(func(context.Context, *task.Task) (any, error) { return nil, nil })
}
