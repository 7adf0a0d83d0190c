package pk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrDuplicateTask is returned when a task name is registered twice.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrUnknownTask is returned when a name does not resolve to a registered task.
	ErrUnknownTask = errors.New("unknown task")
	// ErrCycle is returned when tasks reference each other in a loop.
	ErrCycle = errors.New("task cycle")
)

// Graph is the registry of named tasks and the composition edges between them.
// It is safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []*Task

	// validated is reset whenever a task is added.
	validated bool
}

// NewGraph creates an empty task graph.
func NewGraph() *Graph {
	return &Graph{
		tasks: make(map[string]*Task),
	}
}

// Add registers a task. It fails if the name is already taken.
func (g *Graph) Add(t *Task) error {
	if t == nil {
		return errors.New("cannot add nil task")
	}
	if t.name == "" {
		return errors.New("task name must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tasks[t.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.name)
	}
	g.tasks[t.name] = t
	g.order = append(g.order, t)
	g.validated = false
	return nil
}

// Register adds a leaf task backed by fn.
func (g *Graph) Register(name, usage string, fn func(ctx context.Context) error) (*Task, error) {
	t := NewTask(name, usage, Do(fn))
	if err := g.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Sequence adds a composite task that runs children strictly in order.
func (g *Graph) Sequence(name, usage string, children ...Runnable) (*Task, error) {
	t := NewTask(name, usage, Serial(children...))
	if err := g.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Parallel adds a composite task that runs children concurrently.
func (g *Graph) Parallel(name, usage string, children ...Runnable) (*Task, error) {
	t := NewTask(name, usage, Parallel(children...))
	if err := g.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Task looks up a task by name.
func (g *Graph) Task(name string) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[name]
	return t, ok
}

// Tasks returns all tasks in registration order.
func (g *Graph) Tasks() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tasks := make([]*Task, len(g.order))
	copy(tasks, g.order)
	return tasks
}

// Validate resolves every Ref and checks the graph for unknown tasks and cycles.
func (g *Graph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validateLocked()
}

func (g *Graph) validateLocked() error {
	if g.validated {
		return nil
	}

	// Resolve references and collect the direct task dependencies of each task.
	deps := make(map[string][]string, len(g.order))
	for _, t := range g.order {
		var names []string
		err := walkChild(t.body, func(r Runnable) error {
			switch v := r.(type) {
			case *ref:
				target, ok := g.tasks[v.name]
				if !ok {
					return fmt.Errorf("%w: %q (referenced by %q)", ErrUnknownTask, v.name, t.name)
				}
				v.task = target
				names = append(names, v.name)
			case *Task:
				if g.tasks[v.name] != v {
					return fmt.Errorf("%w: %q is used by %q but not registered", ErrUnknownTask, v.name, t.name)
				}
				names = append(names, v.name)
			}
			return nil
		})
		if err != nil {
			return err
		}
		deps[t.name] = names
	}

	if err := detectCycles(g.order, deps); err != nil {
		return err
	}

	g.validated = true
	return nil
}

// Run validates the graph if needed, then executes the named task.
func (g *Graph) Run(ctx context.Context, name string) error {
	g.mu.Lock()
	err := g.validateLocked()
	t, ok := g.tasks[name]
	g.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	if executionTrackerFromContext(ctx) == nil {
		ctx = withExecutionTracker(ctx, newExecutionTracker())
	}
	return t.run(ctx)
}

// walk visits the composition tree below r without descending into named tasks.
func walk(r Runnable, visit func(Runnable) error) error {
	if r == nil {
		return nil
	}
	switch v := r.(type) {
	case *serial:
		for _, child := range v.runnables {
			if err := walkChild(child, visit); err != nil {
				return err
			}
		}
	case *parallel:
		for _, child := range v.runnables {
			if err := walkChild(child, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkChild(r Runnable, visit func(Runnable) error) error {
	if err := visit(r); err != nil {
		return err
	}
	return walk(r, visit)
}

// detectCycles runs a depth-first search with temporary and permanent marks.
// Tasks are visited in registration order so the reported cycle is stable.
func detectCycles(order []*Task, deps map[string][]string) error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		if permanent[name] {
			return nil
		}
		if temporary[name] {
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), name)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
		}

		temporary[name] = true
		stack = append(stack, name)
		for _, dep := range deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		temporary[name] = false
		permanent[name] = true
		return nil
	}

	for _, t := range order {
		if err := visit(t.name); err != nil {
			return err
		}
	}
	return nil
}
