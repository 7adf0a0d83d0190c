package pk

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TaskResult is the outcome of one task execution.
type TaskResult struct {
	Task     string
	Err      error
	Duration time.Duration
}

// executionTracker records which tasks ran during one invocation.
// It is safe for concurrent use.
type executionTracker struct {
	mu      sync.Mutex
	results []TaskResult
}

// newExecutionTracker creates a new execution tracker.
func newExecutionTracker() *executionTracker {
	return &executionTracker{}
}

// record appends the outcome of a task execution.
func (t *executionTracker) record(name string, err error, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, TaskResult{Task: name, Err: err, Duration: d})
}

// executed returns all recorded results sorted by task name.
func (t *executionTracker) executed() []TaskResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]TaskResult, len(t.results))
	copy(result, t.results)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Task < result[j].Task
	})
	return result
}

// withExecutionTracker returns a new context with the given tracker set.
func withExecutionTracker(ctx context.Context, t *executionTracker) context.Context {
	return context.WithValue(ctx, trackerKey, t)
}

// executionTrackerFromContext returns the execution tracker from the context.
// Returns nil if no tracker is set.
func executionTrackerFromContext(ctx context.Context) *executionTracker {
	if t, ok := ctx.Value(trackerKey).(*executionTracker); ok {
		return t
	}
	return nil
}

// Results collects the results of every task executed by fn.
// Tasks run by fn through Graph.Run share one tracker.
func Results(ctx context.Context, fn func(ctx context.Context) error) ([]TaskResult, error) {
	tracker := newExecutionTracker()
	err := fn(withExecutionTracker(ctx, tracker))
	return tracker.executed(), err
}
