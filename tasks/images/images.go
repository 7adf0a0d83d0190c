// Package images provides the task that optimises images.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
	"golang.org/x/sync/errgroup"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Name is the task name.
const Name = "images"

const svgMediaType = "image/svg+xml"

// Task optimises every image. JPEG and PNG files are re-encoded, SVG files
// are minified and everything else is copied. The smaller of the original
// and the optimised bytes is written.
func Task(cfg config.Config) *pk.Task {
	return pk.NewTask(Name, "optimise images", pk.Do(func(ctx context.Context) error {
		return Run(ctx, cfg)
	}))
}

// Run optimises the images category and writes results once all succeed.
func Run(ctx context.Context, cfg config.Config) error {
	matches, err := fsutil.Glob(cfg.Root, cfg.Images.Patterns)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	o := newOptimizer(cfg.ImageQuality)
	outputs := make([][]byte, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, m := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(m.Path)
			if err != nil {
				return err
			}
			out, err := o.optimize(m.Rel, data)
			if err != nil {
				return fmt.Errorf("%s: %w", m.Rel, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	dest := cfg.DestPath(cfg.Images)
	var before, after int
	for i, m := range matches {
		if err := fsutil.WriteFile(filepath.Join(dest, m.Rel), outputs[i]); err != nil {
			return err
		}
		after += len(outputs[i])
	}
	for _, m := range matches {
		if info, err := os.Stat(m.Path); err == nil {
			before += int(info.Size())
		}
	}

	ctxlog.FromContext(ctx).Debug("images optimised", "count", len(matches), "before", before, "after", after)
	pk.Printf(ctx, "  %d images → %s (saved %s)\n", len(matches), cfg.Rel(dest), savings(before, after))
	return nil
}

type optimizer struct {
	quality int
	min     *minify.M
}

func newOptimizer(quality int) *optimizer {
	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)
	return &optimizer{quality: quality, min: m}
}

// optimize returns the bytes to publish for the image called name.
func (o *optimizer) optimize(name string, data []byte) ([]byte, error) {
	var out []byte
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		var err error
		out, err = o.reencode(name, data)
		if err != nil {
			return nil, err
		}
	case ".svg":
		var err error
		out, err = o.min.Bytes(svgMediaType, data)
		if err != nil {
			return nil, fmt.Errorf("minify svg: %w", err)
		}
	default:
		// GIFs are copied too: re-encoding would drop animation frames.
		return data, nil
	}

	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func (o *optimizer) reencode(name string, data []byte) ([]byte, error) {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format,
		imaging.JPEGQuality(o.quality),
		imaging.PNGCompressionLevel(png.BestCompression),
	); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func savings(before, after int) string {
	if before == 0 || after >= before {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(before-after)*100/float64(before))
}
