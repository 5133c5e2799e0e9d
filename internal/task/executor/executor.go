// Package executor runs one message through parse + handle with
// exponential-backoff retry and error classification.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"msgpump/internal/eventbus"
	"msgpump/internal/task"
	logx "msgpump/pkg/logx"
)

// Executor owns the retry state machine for single tasks.
// It is safe for concurrent Execute calls; each call owns its own Task.
type Executor struct {
	cfg     Config
	parser  Parser
	handler Handler
	log     logx.Logger
	bus     eventbus.Bus

	totalExecuted atomic.Uint64
	totalErrors   atomic.Uint64
}

func New(cfg Config, parser Parser, handler Handler, log logx.Logger, bus eventbus.Bus) *Executor {
	if parser == nil {
		parser = NopParser()
	}
	if handler == nil {
		handler = NopHandler()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{
		cfg:     cfg.withDefaults(),
		parser:  parser,
		handler: handler,
		log:     log,
		bus:     bus,
	}
}

// TotalExecuted reports tasks that finished the retry machine (either outcome).
func (e *Executor) TotalExecuted() uint64 { return e.totalExecuted.Load() }

// TotalErrors reports tasks the retry machine finished as errors.
func (e *Executor) TotalErrors() uint64 { return e.totalErrors.Load() }

// AttemptEvent is published on the bus for task lifecycle events.
type AttemptEvent struct {
	ID       string        `json:"id"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Execute runs raw through parse and the retry loop.
//
// The returned Task is always terminal and always carries the full outcome;
// err is non-nil only on the terminal error path (parse failure, fatal error,
// or retry exhaustion) so callers that only care about the outcome can ignore
// it and inspect the Task instead.
func (e *Executor) Execute(ctx context.Context, raw any) (*task.Task, error) {
	t := task.New(raw, e.cfg.MaxRetries)
	ctx = task.NewContext(ctx, t)

	e.publish(eventbus.TypeTaskStarted, AttemptEvent{ID: t.ID()})

	payload, err := e.parser.Parse(ctx, raw)
	if err != nil {
		perr := task.Parsing(err)
		t.CompleteAsError(perr)
		e.log.Error("message parse failed", logx.String("task", t.ID()), logx.Err(perr))
		e.publish(eventbus.TypeTaskFailed, AttemptEvent{ID: t.ID(), Error: perr.Error()})
		return t, perr
	}
	t.SetMessage(payload)

	for {
		t.IncreaseRetries()

		result, err := e.attempt(ctx, t)
		if err == nil {
			t.CompleteAsSuccess(result)
			e.totalExecuted.Add(1)
			e.log.Debug("task completed",
				logx.String("task", t.ID()),
				logx.Int("attempts", t.Retries()),
				logx.Duration("dur", t.CompletedAt().Sub(t.StartedAt())))
			e.publish(eventbus.TypeTaskCompleted, AttemptEvent{
				ID: t.ID(), Attempts: t.Retries(), Duration: t.CompletedAt().Sub(t.StartedAt()),
			})
			return t, nil
		}

		if task.IsFatal(err) || t.Retries() >= t.MaxRetries() {
			t.CompleteAsError(err)
			e.totalExecuted.Add(1)
			e.totalErrors.Add(1)
			e.log.Warn("task failed",
				logx.String("task", t.ID()),
				logx.Int("attempts", t.Retries()),
				logx.Bool("fatal", task.IsFatal(err)),
				logx.Err(err))
			e.publish(eventbus.TypeTaskFailed, AttemptEvent{
				ID: t.ID(), Attempts: t.Retries(), Duration: t.CompletedAt().Sub(t.StartedAt()), Error: err.Error(),
			})
			return t, err
		}

		t.SetLastError(err)
		delay := backoffDelay(e.cfg, t.Retries())
		e.log.Debug("task retry scheduled",
			logx.String("task", t.ID()),
			logx.Int("attempt", t.Retries()+1),
			logx.Duration("delay", delay),
			logx.Err(err))
		e.publish(eventbus.TypeTaskRetry, AttemptEvent{ID: t.ID(), Attempts: t.Retries(), Error: err.Error()})

		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			// Treat cancellation during backoff like exhaustion: the task
			// settles as an error and the last attempt's failure is kept.
			cerr := fmt.Errorf("retry abandoned: %w", ctx.Err())
			t.CompleteAsError(cerr)
			e.totalExecuted.Add(1)
			e.totalErrors.Add(1)
			e.publish(eventbus.TypeTaskFailed, AttemptEvent{ID: t.ID(), Attempts: t.Retries(), Error: cerr.Error()})
			return t, cerr
		case <-tmr.C:
		}
	}
}

// attempt invokes the handler once, converting panics into errors so one bad
// message can't take down the whole pipeline.
func (e *Executor) attempt(ctx context.Context, t *task.Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			e.log.Error("handler panic",
				logx.String("task", t.ID()),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	return e.handler.Handle(ctx, t)
}

func (e *Executor) publish(typ string, ev AttemptEvent) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// backoffDelay returns min(Interval * 2^n, MaxInterval) where n is the number
// of attempts already made. No jitter: retry chains are strictly sequential
// per task, so delays stay exact and testable.
func backoffDelay(cfg Config, n int) time.Duration {
	d := cfg.Interval
	for i := 0; i < n; i++ {
		d *= 2
		if d >= cfg.MaxInterval || d < 0 {
			return cfg.MaxInterval
		}
	}
	return d
}
