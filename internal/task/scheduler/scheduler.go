// Package scheduler drives the retry executor on a recurring schedule:
// fetch a batch, fan it out, wait for every attempt to settle, update stats,
// re-arm the timer.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"msgpump/internal/cron"
	"msgpump/internal/eventbus"
	"msgpump/internal/journal"
	"msgpump/internal/task"
	logx "msgpump/pkg/logx"
)

type Service struct {
	cfg     Config
	log     logx.Logger
	bus     eventbus.Bus
	sched   cron.Schedule
	exec    Executor
	fetcher Fetcher

	statsH StatsHandler
	jrnl   journal.Journal

	pending  atomic.Int64
	executed atomic.Int64
	errs     atomic.Int64
	ticks    atomic.Int64

	mu      sync.Mutex
	timer   *time.Timer
	started bool

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once

	// Throttles repeated fetch-failure warnings so a broken upstream
	// doesn't flood the log every tick.
	fetchWarn rate.Sometimes
}

func New(cfg Config, sched cron.Schedule, exec Executor, fetcher Fetcher, log logx.Logger, bus eventbus.Bus) *Service {
	if fetcher == nil {
		fetcher = NopFetcher()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		sched:     sched,
		exec:      exec,
		fetcher:   fetcher,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		fetchWarn: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

// SetStatsHandler installs the per-tick stats sink. Call before Start.
func (s *Service) SetStatsHandler(h StatsHandler) { s.statsH = h }

// SetJournal installs the terminal-task journal. Call before Start.
func (s *Service) SetJournal(j journal.Journal) { s.jrnl = j }

// Stats returns the current counter snapshot.
func (s *Service) Stats() Stats {
	return Stats{
		TotalPending:  s.pending.Load(),
		TotalExecuted: s.executed.Load(),
		TotalErrors:   s.errs.Load(),
		Ticks:         s.ticks.Load(),
	}
}

// Start arms the schedule and runs the tick loop in the background.
// It is a no-op on the second call.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info("scheduler started", logx.Int("max_loops", s.cfg.MaxLoops))
	go s.run(ctx)
}

// Stop cancels the pending tick timer and resolves Done immediately.
//
// Already-dispatched retry chains are abandoned: they keep running to their
// own terminal state, but this scheduler no longer waits for them.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()
		s.finish()
		s.log.Info("scheduler stopped")
	})
}

// Done is closed when the scheduler has finished: either MaxLoops ticks
// completed, Stop was called, or the start context was cancelled.
func (s *Service) Done() <-chan struct{} { return s.done }

func (s *Service) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Service) run(ctx context.Context) {
	defer s.finish()

	loops := s.cfg.MaxLoops
	for {
		// Recomputed fresh from "now" after every tick: drift-free, no
		// catch-up on missed fires.
		d := s.sched.NextInterval(time.Now())
		if d < 0 {
			d = 0
		}
		tmr := time.NewTimer(d)
		s.mu.Lock()
		s.timer = tmr
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			tmr.Stop()
			return
		case <-s.stopCh:
			tmr.Stop()
			return
		case <-tmr.C:
		}

		s.tick(ctx)

		if loops > 0 {
			loops--
			if loops == 0 {
				s.log.Info("scheduler loop cap reached", logx.Int("ticks", int(s.ticks.Load())))
				return
			}
		}
	}
}

// tick runs one fetch + fan-out + settle round. Fetch failures skip the tick;
// only per-message executor failures count toward TotalErrors.
func (s *Service) tick(ctx context.Context) {
	start := time.Now()

	msgs, err := s.fetch(ctx)
	if err != nil {
		s.fetchWarn.Do(func() {
			s.log.Warn("fetch failed; skipping tick", logx.Err(err))
		})
		return
	}
	if len(msgs) == 0 {
		s.log.Debug("tick: no messages")
		return
	}

	batch := len(msgs)
	s.pending.Add(int64(batch))

	var failed atomic.Int64
	g := new(errgroup.Group)
	if s.cfg.MaxConcurrent > 0 {
		g.SetLimit(s.cfg.MaxConcurrent)
	}
	for _, raw := range msgs {
		raw := raw
		g.Go(func() error {
			t, _ := s.exec.Execute(ctx, raw)
			if t != nil {
				if t.Status() == task.StatusError {
					failed.Add(1)
				}
				s.record(ctx, t)
			}
			s.pending.Add(-1)
			// The batch barrier never fails; each attempt's outcome lives
			// on its task.
			return nil
		})
	}
	_ = g.Wait()

	s.executed.Add(int64(batch))
	s.errs.Add(failed.Load())
	s.ticks.Add(1)

	snap := s.Stats()
	if s.statsH != nil {
		s.statsH.HandleStats(ctx, snap)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeTickCompleted, Data: TickEvent{
			Batch: batch, Failed: int(failed.Load()), Took: time.Since(start), Stats: snap,
		}})
	}
	s.log.Debug("tick completed",
		logx.Int("batch", batch),
		logx.Int("failed", int(failed.Load())),
		logx.Duration("took", time.Since(start)),
		logx.Int64("total_executed", snap.TotalExecuted),
		logx.Int64("total_errors", snap.TotalErrors))
}

// fetch invokes the fetcher, converting panics into errors so a broken
// fetcher degrades into skipped ticks instead of a crash.
func (s *Service) fetch(ctx context.Context) (msgs []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			msgs = nil
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return s.fetcher.FetchMessages(ctx)
}

func (s *Service) record(ctx context.Context, t *task.Task) {
	if s.jrnl == nil {
		return
	}
	if err := s.jrnl.Append(ctx, journal.RecordOf(t)); err != nil {
		s.log.Warn("journal append failed", logx.String("task", t.ID()), logx.Err(err))
	}
}
