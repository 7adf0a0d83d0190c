package pk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runnable represents a unit of execution in the task graph.
// The run method is intentionally unexported to keep execution internals private.
type Runnable interface {
	run(ctx context.Context) error
}

// Serial composes multiple runnables to execute sequentially.
// Execution stops on the first error; later runnables never start.
func Serial(runnables ...Runnable) Runnable {
	return &serial{runnables: runnables}
}

// Parallel composes multiple runnables to execute concurrently.
// All runnables are started simultaneously, and execution waits for all to complete.
// A failing runnable does not cancel its siblings. All failures are joined
// into the returned error.
func Parallel(runnables ...Runnable) Runnable {
	return &parallel{runnables: runnables}
}

// ParallelFailFast composes runnables like Parallel, except that the first
// failure cancels the context of the others. Use it for long-running
// siblings that only stop when cancelled.
func ParallelFailFast(runnables ...Runnable) Runnable {
	return &parallel{runnables: runnables, failFast: true}
}

// Ref refers to a task by name. The reference is resolved by Graph.Validate,
// so it may name a task that is registered later.
func Ref(name string) Runnable {
	return &ref{name: name}
}

// serial is the internal implementation of sequential composition.
type serial struct {
	runnables []Runnable
}

func (s *serial) run(ctx context.Context) error {
	for _, r := range s.runnables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// parallel is the internal implementation of concurrent composition.
type parallel struct {
	runnables []Runnable
	failFast  bool
}

func (p *parallel) run(ctx context.Context) error {
	if len(p.runnables) == 0 {
		return nil
	}

	// Check if context is already canceled.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Single item? Run directly without buffering.
	if len(p.runnables) == 1 {
		return p.runnables[0].run(ctx)
	}

	// Multiple items: buffer each child's output and flush it on completion
	// so task headers and tool output never interleave.
	parentOut := OutputFromContext(ctx)
	buffers := make([]*bufferedOutput, len(p.runnables))
	for i := range p.runnables {
		buffers[i] = newBufferedOutput(parentOut)
	}
	var flushMu sync.Mutex

	// Unless failing fast, siblings keep running when one of them fails.
	errs := make([]error, len(p.runnables))
	g := &errgroup.Group{}
	groupCtx := ctx
	if p.failFast {
		g, groupCtx = errgroup.WithContext(ctx)
	}
	for i, r := range p.runnables {
		g.Go(func() error {
			childCtx := groupCtx
			if !interactive(r) {
				childCtx = WithOutput(childCtx, buffers[i].Output())
			}
			errs[i] = r.run(childCtx)

			// Flush immediately on completion (first-to-complete flushes first).
			flushMu.Lock()
			buffers[i].Flush()
			flushMu.Unlock()

			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	if p.failFast && ctx.Err() == nil {
		// Siblings stopped by the first failure are not failures themselves.
		for i, err := range errs {
			if errors.Is(err, context.Canceled) {
				errs[i] = nil
			}
		}
	}
	return errors.Join(errs...)
}

// ref is a by-name reference to a registered task.
type ref struct {
	name string
	task *Task // Set by Graph.Validate.
}

func (r *ref) run(ctx context.Context) error {
	if r.task == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTask, r.name)
	}
	return r.task.run(ctx)
}

// interactive reports whether r is, or refers to, an interactive task.
func interactive(r Runnable) bool {
	switch v := r.(type) {
	case *Task:
		return v.interactive
	case *ref:
		return v.task != nil && v.task.interactive
	}
	return false
}
