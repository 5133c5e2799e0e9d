package task

import "context"

type ctxKey struct{}

// NewContext binds t as the current task of ctx.
//
// The executor rebinds the task for every parser/handler invocation, so a
// collaborator always observes the task of its own retry chain even when
// many chains interleave.
func NewContext(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the task the surrounding executor call is processing.
func FromContext(ctx context.Context) (*Task, bool) {
	t, ok := ctx.Value(ctxKey{}).(*Task)
	return t, ok
}
