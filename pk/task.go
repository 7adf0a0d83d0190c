package pk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
)

// Task represents a named, executable unit of work.
// Create tasks with NewTask, or through Graph.Register, Graph.Sequence and
// Graph.Parallel.
type Task struct {
	name  string
	usage string
	body  Runnable

	interactive bool
}

// NewTask creates a new task with a Runnable body.
// Use Do() to wrap a function as a Runnable.
//
// Example with function body:
//
//	var Hello = pk.NewTask("hello", "greet", pk.Do(func(ctx context.Context) error {
//	    pk.Println(ctx, "Hello!")
//	    return nil
//	}))
//
// Example with composition:
//
//	var Build = pk.NewTask("build", "build the site", pk.Serial(Clean, pk.Parallel(JS, Sass)))
func NewTask(name, usage string, body Runnable) *Task {
	return &Task{
		name:  name,
		usage: usage,
		body:  body,
	}
}

// run implements the Runnable interface.
func (t *Task) run(ctx context.Context) error {
	if t.body == nil {
		return fmt.Errorf("task %q has no implementation", t.name)
	}

	// Print task header before execution.
	Printf(ctx, ":: %s\n", t.name)
	notify(ctx, Event{Task: t.name})

	logger := ctxlog.FromContext(ctx).With("task", t.name)
	logger.Debug("task started")
	start := time.Now()

	err := t.body.run(ctx)
	elapsed := time.Since(start)

	if tracker := executionTrackerFromContext(ctx); tracker != nil {
		tracker.record(t.name, err, elapsed)
	}
	notify(ctx, Event{Task: t.name, Done: true, Err: err, Duration: elapsed})

	if err != nil {
		logger.Debug("task failed", "duration", elapsed, "error", err)
		// Composite tasks pass their children's errors through untouched so
		// the reported task is the leaf that actually failed.
		var te *TaskError
		if errors.As(err, &te) {
			return err
		}
		return &TaskError{Task: t.name, Err: err}
	}

	logger.Debug("task finished", "duration", elapsed)
	return nil
}

// Name returns the task's name.
func (t *Task) Name() string {
	return t.name
}

// Usage returns the task's usage description.
func (t *Task) Usage() string {
	return t.usage
}

// Interactive marks a long-running task whose output must reach the user
// while it runs. Parallel compositions do not buffer its output.
func (t *Task) Interactive() *Task {
	t.interactive = true
	return t
}

// TaskError reports which task failed and why.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
