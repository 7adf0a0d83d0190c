// Package clean provides the task that empties the output directory.
package clean

import (
	"context"
	"fmt"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Name is the task name.
const Name = "clean"

// Task removes everything under the output directory. The directory itself
// is kept so watchers and servers holding it stay valid.
func Task(cfg config.Config) *pk.Task {
	return pk.NewTask(Name, "remove everything under the output directory", pk.Do(func(ctx context.Context) error {
		return Run(ctx, cfg)
	}))
}

// Run empties the output directory.
func Run(ctx context.Context, cfg config.Config) error {
	dir := cfg.OutputPath()
	if err := fsutil.RemoveContents(dir); err != nil {
		return fmt.Errorf("clean %s: %w", dir, err)
	}
	ctxlog.FromContext(ctx).Debug("output cleaned", "dir", dir)
	return nil
}
