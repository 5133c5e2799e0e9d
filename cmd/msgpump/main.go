package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"msgpump/internal/config"
	"msgpump/internal/cron"
	"msgpump/internal/eventbus"
	"msgpump/internal/journal"
	"msgpump/internal/task"
	"msgpump/internal/task/executor"
	"msgpump/internal/task/scheduler"
	logx "msgpump/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		// No config file: run the demo pipeline with defaults.
		cfg = &config.Config{
			Logging:   config.LoggingConfig{Level: "info", Console: true},
			Scheduler: config.SchedulerConfig{Schedule: "*/5 * * * *", MaxLoops: -1},
		}
		mgr.Commit(cfg)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()
	mgr.SetLogger(log)

	sched, err := cron.ParseSchedule(cfg.Scheduler.Schedule)
	if err != nil {
		return err
	}

	execCfg, err := executorConfig(cfg.Executor)
	if err != nil {
		return err
	}

	bus := eventbus.New()

	jrnl, err := openJournal(cfg.Journal, log)
	if err != nil {
		return err
	}
	if jrnl != nil {
		defer jrnl.Close()
	}

	// Demo collaborators: a synthetic fetcher and a logging handler. Real
	// deployments plug their own Parser/Handler/Fetcher implementations here.
	exec := executor.New(execCfg,
		executor.NopParser(),
		executor.HandlerFunc(func(ctx context.Context, t *task.Task) (any, error) {
			log.Info("handling message", logx.String("task", t.ID()), logx.Any("payload", t.Message()))
			return "ok", nil
		}),
		log, bus)

	seq := 0
	fetcher := scheduler.FetcherFunc(func(context.Context) ([]any, error) {
		seq++
		return []any{
			fmt.Sprintf("demo-message-%d-a", seq),
			fmt.Sprintf("demo-message-%d-b", seq),
		}, nil
	})

	svc := scheduler.New(scheduler.Config{
		MaxLoops:      cfg.Scheduler.MaxLoops,
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
	}, sched, exec, fetcher, log, bus)
	svc.SetJournal(jrnl)
	svc.SetStatsHandler(scheduler.StatsHandlerFunc(func(_ context.Context, st scheduler.Stats) {
		log.Info("stats",
			logx.Int64("executed", st.TotalExecuted),
			logx.Int64("errors", st.TotalErrors),
			logx.Int64("pending", st.TotalPending),
			logx.Int64("ticks", st.Ticks))
	}))

	// Hot-reload logging settings while running.
	go func() { _ = mgr.Watch(ctx) }()
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		for next := range updates {
			if next == nil {
				continue
			}
			logSvc.Apply(logx.Config{
				Level:   next.Logging.Level,
				Console: next.Logging.Console,
				File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
			})
		}
	}()

	svc.Start(ctx)

	select {
	case <-ctx.Done():
		svc.Stop()
	case <-svc.Done():
	}
	return nil
}

func executorConfig(c config.ExecutorConfig) (executor.Config, error) {
	interval, err := config.ParseDurationField("executor.interval", c.Interval)
	if err != nil {
		return executor.Config{}, err
	}
	maxInterval, err := config.ParseDurationField("executor.max_interval", c.MaxInterval)
	if err != nil {
		return executor.Config{}, err
	}
	return executor.Config{
		Interval:    interval,
		MaxInterval: maxInterval,
		MaxRetries:  c.MaxRetries,
	}, nil
}

func openJournal(c *config.JournalConfig, log logx.Logger) (journal.Journal, error) {
	if c == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationField("journal.busy_timeout", c.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return journal.Open(journal.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}, log)
}
