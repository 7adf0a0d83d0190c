package pk

import (
	"context"
	"time"
)

// Event reports a task starting or finishing.
type Event struct {
	Task string
	// Done is false when the task starts and true when it finishes.
	Done     bool
	Err      error
	Duration time.Duration
}

// Observer receives task events. It is called from the goroutine running
// the task, so observers of parallel compositions must be safe for
// concurrent use.
type Observer func(Event)

type observerKey struct{}

// WithObserver returns a context whose task events are sent to obs.
// Observers added to a context that already has one are both called.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	if prev, ok := ctx.Value(observerKey{}).(Observer); ok {
		next := obs
		obs = func(e Event) {
			prev(e)
			next(e)
		}
	}
	return context.WithValue(ctx, observerKey{}, obs)
}

func notify(ctx context.Context, e Event) {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok {
		obs(e)
	}
}
