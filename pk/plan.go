package pk

import (
	"fmt"
	"io"
)

// Plan writes the composition tree of the named task to w.
// Referenced tasks are expanded in place so the whole execution order is visible.
//
//	build
//	└── [→] Serial
//	    ├── clean
//	    └── [⚡] Parallel
//	        ├── fonts
//	        └── js
func (g *Graph) Plan(w io.Writer, name string) error {
	if err := g.Validate(); err != nil {
		return err
	}
	t, ok := g.Task(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	fmt.Fprintln(w, t.name)
	printTree(w, t.body, "", true)
	return nil
}

// printTree recursively prints the composition tree structure.
func printTree(w io.Writer, r Runnable, prefix string, isLast bool) {
	if r == nil {
		return
	}

	branch := "├── "
	childPrefix := prefix + "│   "
	if isLast {
		branch = "└── "
		childPrefix = prefix + "    "
	}

	switch v := r.(type) {
	case *ref:
		if v.task != nil {
			printTree(w, v.task, prefix, isLast)
			return
		}
		fmt.Fprintf(w, "%s%s%s (unresolved)\n", prefix, branch, v.name)

	case *Task:
		fmt.Fprintf(w, "%s%s%s\n", prefix, branch, v.name)
		// Leaf bodies carry no structure worth printing.
		if _, leaf := v.body.(*doRunnable); !leaf {
			printTree(w, v.body, childPrefix, true)
		}

	case *serial:
		fmt.Fprintf(w, "%s%s[→] Serial\n", prefix, branch)
		for i, child := range v.runnables {
			printTree(w, child, childPrefix, i == len(v.runnables)-1)
		}

	case *parallel:
		label := "Parallel"
		if v.failFast {
			label = "Parallel, fail fast"
		}
		fmt.Fprintf(w, "%s%s[⚡] %s\n", prefix, branch, label)
		for i, child := range v.runnables {
			printTree(w, child, childPrefix, i == len(v.runnables)-1)
		}

	case *doRunnable:
		fmt.Fprintf(w, "%s%s(func)\n", prefix, branch)
	}
}
