package task

import (
	"context"
	"errors"
	"testing"
)

func TestTaskLifecycleSuccess(t *testing.T) {
	t.Parallel()
	tk := New("raw", 3)

	if tk.ID() == "" {
		t.Fatal("expected generated id")
	}
	if tk.Status() != StatusPending {
		t.Fatalf("Status = %s, want %s", tk.Status(), StatusPending)
	}
	if tk.OriginalMessage() != "raw" {
		t.Fatalf("OriginalMessage = %v", tk.OriginalMessage())
	}

	tk.SetMessage("payload")
	tk.IncreaseRetries()
	tk.CompleteAsSuccess("ok")

	if tk.Status() != StatusSuccess {
		t.Fatalf("Status = %s, want %s", tk.Status(), StatusSuccess)
	}
	if tk.Result() != "ok" {
		t.Fatalf("Result = %v, want ok", tk.Result())
	}
	if tk.LastError() != nil {
		t.Fatalf("LastError = %v, want nil", tk.LastError())
	}
	if tk.Retries() != 1 {
		t.Fatalf("Retries = %d, want 1", tk.Retries())
	}
	if tk.CompletedAt().IsZero() {
		t.Fatal("CompletedAt not set")
	}
	if !tk.Terminal() {
		t.Fatal("expected terminal task")
	}
}

func TestTaskTerminalIsSticky(t *testing.T) {
	t.Parallel()
	tk := New("raw", 3)
	tk.CompleteAsError(errors.New("boom"))

	completed := tk.CompletedAt()

	// A second terminal transition must not change the outcome.
	tk.CompleteAsSuccess("late")
	if tk.Status() != StatusError {
		t.Fatalf("Status = %s, want %s", tk.Status(), StatusError)
	}
	if tk.Result() != nil {
		t.Fatalf("Result = %v, want nil", tk.Result())
	}
	if tk.LastError() == nil || tk.LastError().Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", tk.LastError())
	}
	if !tk.CompletedAt().Equal(completed) {
		t.Fatal("CompletedAt changed after terminal state")
	}
}

func TestTaskClampsMaxRetries(t *testing.T) {
	t.Parallel()
	if got := New("raw", 0).MaxRetries(); got != 1 {
		t.Fatalf("MaxRetries = %d, want 1", got)
	}
	if got := New("raw", -4).MaxRetries(); got != 1 {
		t.Fatalf("MaxRetries = %d, want 1", got)
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()
	base := errors.New("bad input")

	f := Fatal(base)
	if !IsFatal(f) {
		t.Fatal("expected fatal classification")
	}
	if IsParsing(f) {
		t.Fatal("fatal must not classify as parsing")
	}
	if !errors.Is(f, base) {
		t.Fatal("fatal must unwrap to the original error")
	}

	p := Parsing(base)
	if !IsParsing(p) {
		t.Fatal("expected parsing classification")
	}
	if IsFatal(p) {
		t.Fatal("parsing must not classify as fatal")
	}
	if !errors.Is(p, base) {
		t.Fatal("parsing must unwrap to the original error")
	}

	if Fatal(nil) != nil || Parsing(nil) != nil {
		t.Fatal("wrapping nil must stay nil")
	}
	if IsFatal(base) || IsParsing(base) {
		t.Fatal("plain errors are transient")
	}
}

func TestTaskContextBinding(t *testing.T) {
	t.Parallel()
	tk := New("raw", 1)
	ctx := NewContext(context.Background(), tk)

	got, ok := FromContext(ctx)
	if !ok || got != tk {
		t.Fatalf("FromContext = %v (ok=%v), want bound task", got, ok)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("unbound context must not carry a task")
	}
}
