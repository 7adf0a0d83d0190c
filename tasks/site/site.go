// Package site wires the build tasks into the task graph.
//
//	build   = clean, then (fonts ∥ js ∥ pug ∥ (images ∥ sass))
//	dev     = build, then (watch ∥ server), ending when either fails
//	default = no-op
package site

import (
	"context"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/pk"
	"github.com/fredrikaverpil/sitebuild/tasks/clean"
	"github.com/fredrikaverpil/sitebuild/tasks/fonts"
	"github.com/fredrikaverpil/sitebuild/tasks/images"
	"github.com/fredrikaverpil/sitebuild/tasks/js"
	"github.com/fredrikaverpil/sitebuild/tasks/pug"
	"github.com/fredrikaverpil/sitebuild/tasks/sass"
)

// Task names.
const (
	TaskClean   = clean.Name
	TaskFonts   = fonts.Name
	TaskJS      = js.Name
	TaskPug     = pug.Name
	TaskImages  = images.Name
	TaskSass    = sass.Name
	TaskBuild   = "build"
	TaskWatch   = "watch"
	TaskServer  = "server"
	TaskDev     = "dev"
	TaskDefault = "default"
)

// Option configures New.
type Option func(*options)

type options struct {
	overrides map[string]*pk.Task
}

// WithTask registers t in place of the built-in task with the same name.
func WithTask(t *pk.Task) Option {
	return func(o *options) {
		o.overrides[t.Name()] = t
	}
}

// New builds and validates the task graph for cfg.
func New(cfg config.Config, opts ...Option) (*pk.Graph, error) {
	o := options{overrides: make(map[string]*pk.Task)}
	for _, opt := range opts {
		opt(&o)
	}

	g := pk.NewGraph()
	tasks := []*pk.Task{
		clean.Task(cfg),
		fonts.Task(cfg),
		js.Task(cfg),
		pug.Task(cfg),
		images.Task(cfg),
		sass.Task(cfg),
		pk.NewTask(TaskBuild, "clean, then build every asset category", pk.Serial(
			pk.Ref(TaskClean),
			pk.Parallel(
				pk.Ref(TaskFonts),
				pk.Ref(TaskJS),
				pk.Ref(TaskPug),
				pk.Parallel(pk.Ref(TaskImages), pk.Ref(TaskSass)),
			),
		)),
		watchTask(cfg, g),
		serverTask(cfg),
		pk.NewTask(TaskDev, "build, then watch and serve", pk.Serial(
			pk.Ref(TaskBuild),
			// A failed server stops the watchers, and with them dev.
			pk.ParallelFailFast(pk.Ref(TaskWatch), pk.Ref(TaskServer)),
		)),
		pk.NewTask(TaskDefault, "do nothing", pk.Do(func(context.Context) error {
			return nil
		})),
	}

	for _, t := range tasks {
		if override, ok := o.overrides[t.Name()]; ok {
			t = override
		}
		if err := g.Add(t); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
