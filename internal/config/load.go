package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// FileNames are the project files Load looks for, in order.
var FileNames = []string{"sitebuild.hcl", "sitebuild.yaml", "sitebuild.yml"}

// fileConfig is the on-disk shape shared by the HCL and YAML formats.
// Pointer fields distinguish "unset" from zero values.
type fileConfig struct {
	SourceDir    *string         `hcl:"source_dir,optional" yaml:"source_dir"`
	OutputDir    *string         `hcl:"output_dir,optional" yaml:"output_dir"`
	Browsers     []string        `hcl:"browsers,optional" yaml:"browsers"`
	ImageQuality *int            `hcl:"image_quality,optional" yaml:"image_quality"`
	SassVersion  *string         `hcl:"sass_version,optional" yaml:"sass_version"`
	Server       *serverBlock    `hcl:"server,block" yaml:"server"`
	Log          *logBlock       `hcl:"log,block" yaml:"log"`
	Categories   []categoryBlock `hcl:"category,block" yaml:"categories"`
}

type serverBlock struct {
	Addr           *string `hcl:"addr,optional" yaml:"addr"`
	ReloadDebounce *string `hcl:"reload_debounce,optional" yaml:"reload_debounce"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional" yaml:"level"`
	Format *string `hcl:"format,optional" yaml:"format"`
}

type categoryBlock struct {
	Name     string   `hcl:"name,label" yaml:"name"`
	Patterns []string `hcl:"patterns,optional" yaml:"patterns"`
	Watch    []string `hcl:"watch,optional" yaml:"watch"`
	Dest     *string  `hcl:"dest,optional" yaml:"dest"`
}

// Load builds the configuration for the project at root.
// getenv is consulted once for the mode and the overrides; pass os.Getenv.
func Load(root string, getenv func(string) string) (Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("resolve root: %w", err)
	}

	cfg := Default(abs, ModeFromEnv(getenv(ModeEnvVar)))

	for _, name := range FileNames {
		path := filepath.Join(abs, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, err
		}
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
		break
	}

	applyEnvOverrides(&cfg, getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile merges a project file into c. The format is chosen by extension.
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	switch filepath.Ext(path) {
	case ".hcl":
		if err := decodeHCL(path, c.Mode, &fc); err != nil {
			return err
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	default:
		return fmt.Errorf("unsupported config file %q", filepath.Base(path))
	}
	return c.merge(fc)
}

// decodeHCL decodes an HCL file. The build mode is available to expressions
// as the variable `mode`:
//
//	image_quality = mode == "production" ? 70 : 90
func decodeHCL(path string, mode Mode, fc *fileConfig) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %s", filepath.Base(path), diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"mode": cty.StringVal(mode.String()),
		},
	}
	if diags := gohcl.DecodeBody(file.Body, evalCtx, fc); diags.HasErrors() {
		return fmt.Errorf("decode %s: %s", filepath.Base(path), diags.Error())
	}
	return nil
}

func (c *Config) merge(fc fileConfig) error {
	if fc.SourceDir != nil {
		c.SourceDir = *fc.SourceDir
	}
	if fc.OutputDir != nil {
		c.OutputDir = *fc.OutputDir
	}
	if fc.Browsers != nil {
		c.Browsers = fc.Browsers
	}
	if fc.ImageQuality != nil {
		c.ImageQuality = *fc.ImageQuality
	}
	if fc.SassVersion != nil {
		c.SassVersion = *fc.SassVersion
	}

	if s := fc.Server; s != nil {
		if s.Addr != nil {
			c.Server.Addr = *s.Addr
		}
		if s.ReloadDebounce != nil {
			d, err := time.ParseDuration(*s.ReloadDebounce)
			if err != nil {
				return fmt.Errorf("server reload_debounce: %w", err)
			}
			c.Server.ReloadDebounce = d
		}
	}

	if l := fc.Log; l != nil {
		if l.Level != nil {
			c.Log.Level = *l.Level
		}
		if l.Format != nil {
			c.Log.Format = *l.Format
		}
	}

	for _, block := range fc.Categories {
		cat, err := c.category(block.Name)
		if err != nil {
			return err
		}
		if block.Patterns != nil {
			cat.Patterns = block.Patterns
		}
		if block.Watch != nil {
			cat.Watch = block.Watch
		}
		if block.Dest != nil {
			cat.Dest = *block.Dest
		}
	}
	return nil
}

func (c *Config) category(name string) (*Category, error) {
	switch name {
	case "sass":
		return &c.Sass, nil
	case "js":
		return &c.JS, nil
	case "fonts":
		return &c.Fonts, nil
	case "images":
		return &c.Images, nil
	case "pug":
		return &c.Pug, nil
	default:
		return nil, fmt.Errorf("unknown category %q", name)
	}
}

func applyEnvOverrides(c *Config, getenv func(string) string) {
	if v := getenv(LogLevelEnvVar); v != "" {
		c.Log.Level = v
	}
	if v := getenv(LogFormatEnv); v != "" {
		c.Log.Format = v
	}
	if v := getenv(AddrEnvVar); v != "" {
		c.Server.Addr = v
	}
}
