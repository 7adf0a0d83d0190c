// Package fonts provides the task that copies web fonts into the output.
package fonts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Name is the task name.
const Name = "fonts"

// Task copies font files unchanged, preserving their relative paths.
func Task(cfg config.Config) *pk.Task {
	return pk.NewTask(Name, "copy fonts", pk.Do(func(ctx context.Context) error {
		return Run(ctx, cfg)
	}))
}

// Run copies every matched font into the fonts output directory.
func Run(ctx context.Context, cfg config.Config) error {
	matches, err := fsutil.Glob(cfg.Root, cfg.Fonts.Patterns)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	// Read everything first so a failed read leaves the output untouched.
	contents := make([][]byte, len(matches))
	for i, m := range matches {
		data, err := os.ReadFile(m.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", m.Rel, err)
		}
		contents[i] = data
	}

	dest := cfg.DestPath(cfg.Fonts)
	for i, m := range matches {
		if err := fsutil.WriteFile(filepath.Join(dest, m.Rel), contents[i]); err != nil {
			return err
		}
	}
	pk.Printf(ctx, "  %d files → %s\n", len(matches), cfg.Rel(dest))
	return nil
}

