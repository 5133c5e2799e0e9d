package scheduler

import (
	"context"
	"time"

	"msgpump/internal/task"
)

// Config controls the recurring scheduler.
type Config struct {
	// MaxLoops caps the number of ticks; <= 0 means unbounded.
	MaxLoops int

	// MaxConcurrent limits concurrent executor calls within one batch.
	// 0 disables the limit (every message in a batch is dispatched at once).
	MaxConcurrent int
}

// Executor settles one raw message into a terminal task.
// *executor.Executor satisfies this.
type Executor interface {
	Execute(ctx context.Context, raw any) (*task.Task, error)
}

// Fetcher produces the batch of raw messages for one tick.
//
// An empty (or nil) batch makes the tick a no-op. A fetch error is logged
// and skips the tick; it never stops the scheduler and never counts toward
// TotalErrors.
type Fetcher interface {
	FetchMessages(ctx context.Context) ([]any, error)
}

type FetcherFunc func(ctx context.Context) ([]any, error)

func (f FetcherFunc) FetchMessages(ctx context.Context) ([]any, error) { return f(ctx) }

// NopFetcher never produces messages.
func NopFetcher() Fetcher {
	return FetcherFunc(func(context.Context) ([]any, error) { return nil, nil })
}

// Stats is the scheduler's aggregate counter snapshot.
//
// TotalPending counts attempts currently in flight; TotalExecuted counts
// attempts that reached a terminal state; TotalErrors counts the subset that
// terminated as errors.
type Stats struct {
	TotalPending  int64 `json:"total_pending"`
	TotalExecuted int64 `json:"total_executed"`
	TotalErrors   int64 `json:"total_errors"`
	Ticks         int64 `json:"ticks"`
}

// StatsHandler receives the stats snapshot once per tick, after the batch
// settles. Side-effect only; it never influences control flow.
type StatsHandler interface {
	HandleStats(ctx context.Context, s Stats)
}

type StatsHandlerFunc func(ctx context.Context, s Stats)

func (f StatsHandlerFunc) HandleStats(ctx context.Context, s Stats) { f(ctx, s) }

// TickEvent is published on the bus after each tick settles.
type TickEvent struct {
	Batch  int           `json:"batch"`
	Failed int           `json:"failed"`
	Took   time.Duration `json:"took"`
	Stats  Stats         `json:"stats"`
}
