package site

import (
	"context"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/devserver"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// serverTask serves the output directory with live reload until the
// context is done. A failed bind fails the task.
func serverTask(cfg config.Config) *pk.Task {
	return pk.NewTask(TaskServer, "serve the output directory with live reload", pk.Do(func(ctx context.Context) error {
		srv := devserver.New(cfg.OutputPath(), cfg.Server.Addr, cfg.Server.ReloadDebounce)
		ln, err := srv.Listen()
		if err != nil {
			// Under dev the watchers keep running, so report it now.
			pk.Errorf(ctx, "  %v\n", err)
			return err
		}
		pk.Printf(ctx, "  serving %s at http://%s\n", cfg.Rel(cfg.OutputPath()), ln.Addr())
		return srv.Serve(ctx, ln)
	})).Interactive()
}
