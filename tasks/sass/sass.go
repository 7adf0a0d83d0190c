// Package sass provides the task that compiles stylesheets.
package sass

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
	"github.com/fredrikaverpil/sitebuild/tools/dartsass"
)

// Name is the task name.
const Name = "sass"

// Compiler compiles sass units. dartsass.Compile is the production
// implementation.
type Compiler func(ctx context.Context, units []dartsass.Unit, opts dartsass.Options) error

// Task compiles every non-partial stylesheet with Dart Sass, installing it
// first when it is not on PATH.
func Task(cfg config.Config) *pk.Task {
	command := dartsass.Command(cfg.SassVersion)
	compile := func(ctx context.Context, units []dartsass.Unit, opts dartsass.Options) error {
		return dartsass.Compile(ctx, command, units, opts)
	}
	return pk.NewTask(Name, "compile stylesheets", pk.Serial(
		dartsass.Install(cfg.SassVersion),
		pk.Do(func(ctx context.Context) error {
			return Run(ctx, cfg, compile)
		}),
	))
}

// Run compiles into a staging directory next to the destination and only
// moves the results into place when every stylesheet compiled.
func Run(ctx context.Context, cfg config.Config, compile Compiler) error {
	matches, err := fsutil.Glob(cfg.Root, cfg.Sass.Patterns)
	if err != nil {
		return err
	}
	var sources []fsutil.Match
	for _, m := range matches {
		if !fsutil.IsPartial(m.Rel) {
			sources = append(sources, m)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	dest := cfg.DestPath(cfg.Sass)
	// A sibling of dest keeps relative sourcemap URLs valid after the move.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	stage, err := os.MkdirTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-stage-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	units := make([]dartsass.Unit, 0, len(sources))
	for _, m := range sources {
		units = append(units, dartsass.Unit{
			Src: m.Path,
			Dst: filepath.Join(stage, fsutil.ReplaceExt(m.Rel, ".css")),
		})
	}

	if err := compile(pk.WithPath(ctx, cfg.Root), units, compileOptions(cfg)); err != nil {
		return err
	}

	if cfg.Mode == config.Production {
		if err := postProcess(stage, cfg); err != nil {
			return err
		}
	}

	if err := fsutil.CopyTree(stage, dest); err != nil {
		return fmt.Errorf("move stylesheets into %s: %w", cfg.Rel(dest), err)
	}
	ctxlog.FromContext(ctx).Debug("stylesheets compiled", "count", len(units), "mode", cfg.Mode.String())
	pk.Printf(ctx, "  %d stylesheets → %s\n", len(units), cfg.Rel(dest))
	return nil
}

func compileOptions(cfg config.Config) dartsass.Options {
	opts := dartsass.Options{
		Style:     dartsass.Expanded,
		SourceMap: true,
	}
	if cfg.Mode == config.Production {
		opts.Style = dartsass.Compressed
		opts.SourceMap = false
	}
	for _, dir := range []string{cfg.Path(cfg.SourceDir), cfg.Path("node_modules")} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			opts.LoadPaths = append(opts.LoadPaths, dir)
		}
	}
	return opts
}

// postProcess vendor-prefixes and minifies every stylesheet in dir for the
// configured browser targets.
func postProcess(dir string, cfg config.Config) error {
	engines, err := cfg.Engines()
	if err != nil {
		return err
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".css" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, err := Prefix(data, filepath.Base(path), engines)
		if err != nil {
			return err
		}
		return os.WriteFile(path, out, 0o644)
	})
}

// Prefix runs esbuild's CSS transform over css, adding the vendor prefixes
// and syntax lowering the engines need, and minifies the result.
func Prefix(css []byte, name string, engines []api.Engine) ([]byte, error) {
	result := api.Transform(string(css), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       name,
		Engines:          engines,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, fmt.Errorf("post-process %s: %w", name, errors.New(strings.TrimSpace(strings.Join(msgs, "\n"))))
	}
	return result.Code, nil
}
