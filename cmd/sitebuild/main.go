// Command sitebuild builds the front-end assets of a site.
//
//	sitebuild build              # clean, then build every asset category
//	NODE_ENV=production sitebuild build
//	sitebuild dev                # build, then watch and serve with live reload
//	sitebuild -plan=build plan   # print the composition tree of a task
//	sitebuild init               # create a starter project
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/goyek/goyek/v3"
	"github.com/goyek/x/boot"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/scaffold"
	"github.com/fredrikaverpil/sitebuild/pk"
	"github.com/fredrikaverpil/sitebuild/tasks/site"
)

var planOf = flag.String("plan", site.TaskDev, "task whose composition tree the plan task prints")

func main() {
	cfg, err := config.Load(".", os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sitebuild: %v\n", err)
		os.Exit(1)
	}
	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	graph, err := site.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sitebuild: %v\n", err)
		os.Exit(1)
	}

	out := pk.StdOutput()
	colored := pk.IsTerminal(os.Stdout)
	defined := make(map[string]*goyek.DefinedTask)
	for _, t := range graph.Tasks() {
		name := t.Name()
		defined[name] = goyek.Define(goyek.Task{
			Name:  name,
			Usage: t.Usage(),
			Action: func(a *goyek.A) {
				// Task output goes straight to the terminal: goyek only shows
				// a.Output() after the task ends, which hides watch and server.
				ctx := ctxlog.WithLogger(a.Context(), logger)
				ctx = pk.WithOutput(ctx, out)
				ctx = pk.WithPath(ctx, cfg.Root)
				ctx = pk.WithVerbose(ctx, ctxlog.ParseLevel(cfg.Log.Level) <= slog.LevelDebug)
				if name == site.TaskDev {
					ctx = pk.WithObserver(ctx, sessionLogger(logger, site.NewSession(name)))
				}

				results, err := pk.Results(ctx, func(ctx context.Context) error {
					return graph.Run(ctx, name)
				})
				report(out.Stdout, results, colored)
				if err != nil {
					a.Fatal(err)
				}
			},
		})
	}

	goyek.Define(goyek.Task{
		Name:  "plan",
		Usage: "print the composition tree of the task named by -plan",
		Action: func(a *goyek.A) {
			if err := graph.Plan(a.Output(), *planOf); err != nil {
				a.Fatal(err)
			}
		},
	})

	goyek.Define(goyek.Task{
		Name:  "init",
		Usage: "create a starter sitebuild.hcl and assets tree",
		Action: func(a *goyek.A) {
			written, err := scaffold.GenerateAll(cfg.Root)
			for _, path := range written {
				fmt.Fprintf(out.Stdout, "  created %s\n", path)
			}
			if err != nil {
				a.Fatal(err)
			}
		},
	})

	goyek.SetDefault(defined[site.TaskDefault])
	boot.Main()
}

// sessionLogger feeds events to s and logs every state change.
func sessionLogger(logger *slog.Logger, s *site.Session) pk.Observer {
	return func(e pk.Event) {
		before := s.State()
		s.Observe(e)
		if after := s.State(); after != before {
			logger.Info("dev session", "state", after.String())
		}
	}
}
