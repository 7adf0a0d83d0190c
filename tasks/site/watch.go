package site

import (
	"context"
	"errors"
	"fmt"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/watch"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Binding is a watch rule: changes matching Patterns re-run Task.
type Binding struct {
	Task     string
	Patterns []string
}

// Bindings returns the watch rules for cfg, one per asset category.
func Bindings(cfg config.Config) []Binding {
	return []Binding{
		{Task: TaskSass, Patterns: cfg.Sass.Watch},
		{Task: TaskImages, Patterns: cfg.Images.Watch},
		{Task: TaskJS, Patterns: cfg.JS.Watch},
		{Task: TaskPug, Patterns: cfg.Pug.Watch},
		{Task: TaskFonts, Patterns: cfg.Fonts.Watch},
	}
}

// watchTask subscribes every binding and blocks until the context is done,
// then releases the subscriptions.
func watchTask(cfg config.Config, g *pk.Graph) *pk.Task {
	return pk.NewTask(TaskWatch, "re-run asset tasks when their sources change", pk.Do(func(ctx context.Context) error {
		subs, err := subscribe(ctx, cfg, g)
		if err != nil {
			return err
		}
		defer func() {
			for _, s := range subs {
				_ = s.Close()
			}
		}()

		pk.Printf(ctx, "  watching %d bindings under %s\n", len(subs), cfg.Root)
		<-ctx.Done()
		ctxlog.FromContext(ctx).Debug("watch stopped")
		return nil
	})).Interactive()
}

func subscribe(ctx context.Context, cfg config.Config, g *pk.Graph) ([]*watch.Subscription, error) {
	var subs []*watch.Subscription
	for _, b := range Bindings(cfg) {
		if len(b.Patterns) == 0 {
			continue
		}
		sub, err := watch.Subscribe(ctx, cfg.Root, watch.Binding{
			Name:     b.Task,
			Patterns: b.Patterns,
			OnChange: rerun(g, b.Task),
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Close()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// rerun runs the named task and reports a failure to the user. The watch
// subscription logs it and keeps listening. Each rerun records its results
// in a tracker of its own, so the invoking task's results stay bounded.
func rerun(g *pk.Graph, name string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := pk.Results(ctx, func(ctx context.Context) error {
			return g.Run(ctx, name)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			pk.Errorf(ctx, "%v\n", err)
			return fmt.Errorf("rerun %s: %w", name, err)
		}
		return err
	}
}
