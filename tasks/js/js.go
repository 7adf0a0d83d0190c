// Package js provides the task that bundles JavaScript entry points.
package js

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Name is the task name.
const Name = "js"

// Task bundles every entry point with esbuild.
//
// Development builds are unminified with linked sourcemaps. Production
// builds are minified, carry no sourcemaps and are lowered to the
// configured browser targets.
func Task(cfg config.Config) *pk.Task {
	return pk.NewTask(Name, "bundle JavaScript", pk.Do(func(ctx context.Context) error {
		return Run(ctx, cfg)
	}))
}

// Run bundles the JS category and writes the bundles on success.
func Run(ctx context.Context, cfg config.Config) error {
	matches, err := fsutil.Glob(cfg.Root, cfg.JS.Patterns)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	opts, err := buildOptions(cfg, matches)
	if err != nil {
		return err
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return buildError(result.Errors)
	}
	for _, w := range api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		pk.Errorf(ctx, "%s", w)
	}

	for _, f := range result.OutputFiles {
		if err := fsutil.WriteFile(f.Path, f.Contents); err != nil {
			return err
		}
	}
	pk.Printf(ctx, "  %d bundles → %s\n", len(matches), cfg.Rel(cfg.DestPath(cfg.JS)))
	return nil
}

func buildOptions(cfg config.Config, matches []fsutil.Match) (api.BuildOptions, error) {
	entries := make([]api.EntryPoint, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, api.EntryPoint{
			InputPath:  m.Path,
			OutputPath: fsutil.ReplaceExt(m.Rel, ""),
		})
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       cfg.Root,
		Outdir:              cfg.DestPath(cfg.JS),
		Bundle:              true,
		Write:               false,
		LogLevel:            api.LogLevelSilent,
		Define: map[string]string{
			"process.env.NODE_ENV": fmt.Sprintf("%q", cfg.Mode.String()),
		},
	}

	switch cfg.Mode {
	case config.Production:
		engines, err := cfg.Engines()
		if err != nil {
			return api.BuildOptions{}, err
		}
		opts.Engines = engines
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.Sourcemap = api.SourceMapNone
	default:
		opts.Sourcemap = api.SourceMapLinked
	}
	return opts, nil
}

// buildError turns esbuild diagnostics into an error listing every message.
func buildError(msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	errs := make([]error, 0, len(formatted))
	for _, f := range formatted {
		errs = append(errs, errors.New(strings.TrimSpace(f)))
	}
	return fmt.Errorf("esbuild: %d error(s)\n%w", len(msgs), errors.Join(errs...))
}
