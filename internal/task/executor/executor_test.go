package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"msgpump/internal/task"
	logx "msgpump/pkg/logx"
)

func testConfig() Config {
	return Config{Interval: time.Millisecond, MaxInterval: 50 * time.Millisecond, MaxRetries: 3}
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	t.Parallel()
	e := New(testConfig(), nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) { return "ok", nil }),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if tk.Status() != task.StatusSuccess {
		t.Fatalf("Status = %s, want success", tk.Status())
	}
	if tk.Result() != "ok" {
		t.Fatalf("Result = %v, want ok", tk.Result())
	}
	if tk.Retries() != 1 {
		t.Fatalf("Retries = %d, want 1", tk.Retries())
	}
	if got := e.TotalExecuted(); got != 1 {
		t.Fatalf("TotalExecuted = %d, want 1", got)
	}
	if got := e.TotalErrors(); got != 0 {
		t.Fatalf("TotalErrors = %d, want 0", got)
	}
}

func TestExecuteTransientRetriesUntilExhausted(t *testing.T) {
	t.Parallel()
	attempts := 0
	e := New(testConfig(), nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			attempts++
			return nil, errors.New("flaky")
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if tk.Status() != task.StatusError {
		t.Fatalf("Status = %s, want error", tk.Status())
	}
	if tk.Retries() != 3 || attempts != 3 {
		t.Fatalf("Retries = %d, attempts = %d, want 3/3", tk.Retries(), attempts)
	}
	if task.IsFatal(tk.LastError()) {
		t.Fatal("transient failure must not classify as fatal")
	}
	if e.TotalExecuted() != 1 || e.TotalErrors() != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", e.TotalExecuted(), e.TotalErrors())
	}
}

func TestExecuteRecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()
	attempts := 0
	e := New(testConfig(), nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("not yet")
			}
			return "eventually", nil
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if tk.Status() != task.StatusSuccess || tk.Result() != "eventually" {
		t.Fatalf("Status = %s, Result = %v", tk.Status(), tk.Result())
	}
	if tk.Retries() != 3 {
		t.Fatalf("Retries = %d, want 3", tk.Retries())
	}
	if tk.LastError() != nil {
		t.Fatalf("LastError = %v, want nil on success", tk.LastError())
	}
}

func TestExecuteFatalStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0
	e := New(testConfig(), nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			attempts++
			return nil, task.Fatal(errors.New("unrecoverable"))
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if tk.Status() != task.StatusError {
		t.Fatalf("Status = %s, want error", tk.Status())
	}
	if attempts != 1 || tk.Retries() != 1 {
		t.Fatalf("attempts = %d, Retries = %d, want 1/1", attempts, tk.Retries())
	}
	if !task.IsFatal(tk.LastError()) {
		t.Fatalf("LastError = %v, want fatal", tk.LastError())
	}
}

func TestExecuteParseFailureNeverRetries(t *testing.T) {
	t.Parallel()
	base := errors.New("not json")
	handled := false
	e := New(testConfig(),
		ParserFunc(func(context.Context, any) (any, error) { return nil, base }),
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			handled = true
			return nil, nil
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if handled {
		t.Fatal("handler must not run after a parse failure")
	}
	if tk.Status() != task.StatusError {
		t.Fatalf("Status = %s, want error", tk.Status())
	}
	if tk.Retries() != 0 {
		t.Fatalf("Retries = %d, want 0", tk.Retries())
	}
	if !task.IsParsing(tk.LastError()) {
		t.Fatalf("LastError = %v, want parsing", tk.LastError())
	}
	if !errors.Is(tk.LastError(), base) {
		t.Fatal("parsing error must wrap the original failure")
	}
	if tk.Message() != nil {
		t.Fatalf("Message = %v, want unset after parse failure", tk.Message())
	}
}

func TestExecuteHandlerPanicIsTransient(t *testing.T) {
	t.Parallel()
	attempts := 0
	e := New(Config{Interval: time.Millisecond, MaxInterval: 10 * time.Millisecond, MaxRetries: 2}, nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			attempts++
			panic("boom")
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (panic retried once)", attempts)
	}
	if tk.Status() != task.StatusError {
		t.Fatalf("Status = %s, want error", tk.Status())
	}
}

func TestExecuteBindsTaskToContext(t *testing.T) {
	t.Parallel()
	var parserSaw, handlerSaw *task.Task
	e := New(testConfig(),
		ParserFunc(func(ctx context.Context, raw any) (any, error) {
			parserSaw, _ = task.FromContext(ctx)
			return raw, nil
		}),
		HandlerFunc(func(ctx context.Context, tk *task.Task) (any, error) {
			handlerSaw, _ = task.FromContext(ctx)
			return nil, nil
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(context.Background(), "raw")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if parserSaw != tk || handlerSaw != tk {
		t.Fatal("parser/handler must observe the task of their own chain")
	}
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	e := New(Config{Interval: time.Hour, MaxInterval: 2 * time.Hour, MaxRetries: 3}, nil,
		HandlerFunc(func(context.Context, *task.Task) (any, error) {
			cancel()
			return nil, errors.New("flaky")
		}),
		logx.Nop(), nil)

	tk, err := e.Execute(ctx, "raw")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if tk.Status() != task.StatusError {
		t.Fatalf("Status = %s, want error", tk.Status())
	}
	if tk.Retries() != 1 {
		t.Fatalf("Retries = %d, want 1", tk.Retries())
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		n    int
		want time.Duration
	}{
		{name: "first retry doubles", cfg: Config{Interval: time.Second, MaxInterval: time.Hour}, n: 1, want: 2 * time.Second},
		{name: "second retry quadruples", cfg: Config{Interval: time.Second, MaxInterval: time.Hour}, n: 2, want: 4 * time.Second},
		{name: "tenth retry", cfg: Config{Interval: time.Second, MaxInterval: time.Hour}, n: 10, want: 1024 * time.Second},
		{name: "ceiling", cfg: Config{Interval: time.Second, MaxInterval: 3 * time.Second}, n: 2, want: 3 * time.Second},
		{name: "far past ceiling", cfg: Config{Interval: time.Second, MaxInterval: time.Hour}, n: 63, want: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffDelay(tt.cfg, tt.n); got != tt.want {
				t.Fatalf("backoffDelay(n=%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}
