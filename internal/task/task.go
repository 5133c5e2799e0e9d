package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
//
// A task starts Pending and transitions exactly once to a terminal state
// (Success or Error). Terminal tasks never change again.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Task is one message's processing attempt lifecycle.
//
// Ownership contract: a Task is exclusively owned by the executor call that
// created it until it reaches a terminal state; after that it is read-only.
// Mutators are therefore not synchronized.
type Task struct {
	id              string
	originalMessage any
	message         any

	retries    int
	maxRetries int

	status    Status
	lastError error
	result    any

	startedAt   time.Time
	completedAt time.Time
}

// New creates a pending task for a raw message.
// maxRetries must be >= 1; values below are clamped.
func New(originalMessage any, maxRetries int) *Task {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Task{
		id:              uuid.NewString(),
		originalMessage: originalMessage,
		maxRetries:      maxRetries,
		status:          StatusPending,
		startedAt:       time.Now(),
	}
}

func (t *Task) ID() string             { return t.id }
func (t *Task) OriginalMessage() any   { return t.originalMessage }
func (t *Task) Message() any           { return t.message }
func (t *Task) Retries() int           { return t.retries }
func (t *Task) MaxRetries() int        { return t.maxRetries }
func (t *Task) Status() Status         { return t.status }
func (t *Task) LastError() error       { return t.lastError }
func (t *Task) Result() any            { return t.result }
func (t *Task) StartedAt() time.Time   { return t.startedAt }
func (t *Task) CompletedAt() time.Time { return t.completedAt }

// Terminal reports whether the task reached Success or Error.
func (t *Task) Terminal() bool {
	return t.status == StatusSuccess || t.status == StatusError
}

// IncreaseRetries counts one attempt. Called immediately before each
// handler invocation, so Retries() includes the first attempt.
func (t *Task) IncreaseRetries() { t.retries++ }

// SetMessage stores the parsed payload. Set at most once, before the
// first handling attempt.
func (t *Task) SetMessage(msg any) { t.message = msg }

// SetLastError records the most recent attempt failure.
func (t *Task) SetLastError(err error) { t.lastError = err }

// CompleteAsSuccess transitions the task to its Success terminal state.
//
// Callers must guarantee at-most-once invocation of a terminal transition;
// calls on an already-terminal task are ignored.
func (t *Task) CompleteAsSuccess(result any) {
	if t.Terminal() {
		return
	}
	t.result = result
	t.lastError = nil
	t.status = StatusSuccess
	t.completedAt = time.Now()
}

// CompleteAsError transitions the task to its Error terminal state.
//
// Callers must guarantee at-most-once invocation of a terminal transition;
// calls on an already-terminal task are ignored.
func (t *Task) CompleteAsError(err error) {
	if t.Terminal() {
		return
	}
	t.lastError = err
	t.status = StatusError
	t.completedAt = time.Now()
}
