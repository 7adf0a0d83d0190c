// Package config holds the immutable build configuration shared by every task.
//
// The configuration is computed once at process start: defaults, then an
// optional project file (sitebuild.hcl or sitebuild.yaml), then environment
// overrides. Tasks receive it by value and never consult the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fredrikaverpil/sitebuild/tools/dartsass"
)

// Environment variables read by Load.
const (
	// ModeEnvVar selects the build mode. Unset or "development" selects
	// development; any other value selects production.
	ModeEnvVar     = "NODE_ENV"
	LogLevelEnvVar = "SITEBUILD_LOG_LEVEL"
	LogFormatEnv   = "SITEBUILD_LOG_FORMAT"
	AddrEnvVar     = "SITEBUILD_ADDR"
)

// Mode is the development/production build distinction.
type Mode int

const (
	// Development keeps debug aids: sourcemaps, unminified output.
	Development Mode = iota
	// Production minifies, drops sourcemaps and vendor-prefixes styles.
	Production
)

func (m Mode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}

// ModeFromEnv maps the value of ModeEnvVar to a Mode.
func ModeFromEnv(value string) Mode {
	if value == "" || value == "development" {
		return Development
	}
	return Production
}

// Category selects one kind of source asset and where its output goes.
type Category struct {
	// Patterns are globs relative to the project root selecting source files.
	Patterns []string
	// Watch are globs whose changes re-run the category's task.
	Watch []string
	// Dest is the output directory relative to OutputDir.
	Dest string
}

// Server configures the development server.
type Server struct {
	Addr string
	// ReloadDebounce coalesces bursts of output changes into one reload.
	ReloadDebounce time.Duration
}

// Log configures the structured logger.
type Log struct {
	Level  string
	Format string
}

// Config is the build configuration.
type Config struct {
	// Root is the absolute project root. All other paths are relative to it.
	Root string
	Mode Mode

	SourceDir string
	OutputDir string

	Sass   Category
	JS     Category
	Fonts  Category
	Images Category
	Pug    Category

	Server Server
	Log    Log

	// Browsers are esbuild engine targets such as "chrome130" or "safari17".
	Browsers []string
	// ImageQuality is the JPEG quality used when re-encoding images.
	ImageQuality int
	// SassVersion is the Dart Sass release downloaded when sass is not on PATH.
	SassVersion string
}

// Default returns the configuration used when no project file exists.
func Default(root string, mode Mode) Config {
	return Config{
		Root:      root,
		Mode:      mode,
		SourceDir: "assets",
		OutputDir: "dist",
		Sass: Category{
			Patterns: []string{"assets/sass/**/*.scss"},
			Watch:    []string{"assets/**/*.scss"},
			Dest:     "css",
		},
		JS: Category{
			Patterns: []string{"assets/js/*.js"},
			Watch:    []string{"assets/**/*.js"},
			Dest:     "js",
		},
		Fonts: Category{
			Patterns: []string{"assets/fonts/**/*.*"},
			Watch:    []string{"assets/fonts/**/*.*"},
			Dest:     "fonts",
		},
		Images: Category{
			Patterns: []string{"assets/images/**/*.*"},
			Watch:    []string{"assets/images/**/*.*"},
			Dest:     "images",
		},
		Pug: Category{
			Patterns: []string{"assets/pug/**/*.pug"},
			Watch:    []string{"assets/pug/**/*.pug"},
			Dest:     ".",
		},
		Server: Server{
			Addr:           "localhost:3000",
			ReloadDebounce: 100 * time.Millisecond,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		// Roughly "last 2 versions, Firefox ESR".
		Browsers:     []string{"chrome130", "edge130", "firefox128", "safari17", "ios17"},
		ImageQuality: 80,
		SassVersion:  dartsass.Version,
	}
}

// Path returns the absolute path of a root-relative path.
func (c Config) Path(elem ...string) string {
	parts := append([]string{c.Root}, elem...)
	return filepath.Join(parts...)
}

// OutputPath returns the absolute path of the output directory.
func (c Config) OutputPath() string {
	return c.Path(c.OutputDir)
}

// DestPath returns the absolute output directory of a category.
func (c Config) DestPath(cat Category) string {
	return c.Path(c.OutputDir, cat.Dest)
}

// Rel returns path relative to the project root, slash-separated, for
// display. Paths outside the root are returned unchanged.
func (c Config) Rel(path string) string {
	rel, err := filepath.Rel(c.Root, path)
	if err != nil || escapes(rel) {
		return path
	}
	return filepath.ToSlash(rel)
}

// Categories returns every asset category keyed by its task name.
func (c Config) Categories() map[string]Category {
	return map[string]Category{
		"sass":   c.Sass,
		"js":     c.JS,
		"fonts":  c.Fonts,
		"images": c.Images,
		"pug":    c.Pug,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error

	if !filepath.IsAbs(c.Root) {
		errs = append(errs, fmt.Errorf("root %q must be absolute", c.Root))
	}

	out := filepath.Clean(c.OutputDir)
	switch {
	case c.OutputDir == "":
		errs = append(errs, errors.New("output_dir must not be empty"))
	case out == "." || filepath.IsAbs(out) || escapes(out):
		errs = append(errs, fmt.Errorf("output_dir %q must be a subdirectory of the project root", c.OutputDir))
	case c.SourceDir != "" && (within(filepath.Clean(c.SourceDir), out) || within(out, filepath.Clean(c.SourceDir))):
		errs = append(errs, fmt.Errorf("source_dir %q and output_dir %q must not overlap", c.SourceDir, c.OutputDir))
	}

	for name, cat := range c.Categories() {
		if len(cat.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one pattern is required", name))
		}
		for _, p := range append(append([]string{}, cat.Patterns...), cat.Watch...) {
			if !doublestar.ValidatePattern(p) {
				errs = append(errs, fmt.Errorf("%s: invalid pattern %q", name, p))
			}
		}
		if filepath.IsAbs(cat.Dest) || escapes(filepath.Clean(cat.Dest)) {
			errs = append(errs, fmt.Errorf("%s: dest %q must stay inside output_dir", name, cat.Dest))
		}
	}

	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		errs = append(errs, fmt.Errorf("image_quality %d must be between 1 and 100", c.ImageQuality))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server addr must not be empty"))
	}
	if _, err := c.Engines(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// within reports whether path equals dir or is below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
