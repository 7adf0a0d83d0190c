// Package pug provides the task that renders pug templates to HTML.
package pug

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Joker/hpp"
	"github.com/Joker/jade"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
	"github.com/fredrikaverpil/sitebuild/pk"
)

// Name is the task name.
const Name = "pug"

// Page is the data every template is executed with.
type Page struct {
	Mode        string
	Development bool
	Production  bool
	// Path is the output path relative to the output directory, e.g.
	// "blog/index.html".
	Path string
	// Root is the relative prefix from the page to the site root, e.g. "../".
	Root string
}

// Task renders every non-partial template. Files starting with "_" are
// layouts and mixins meant for include and extends only.
func Task(cfg config.Config) *pk.Task {
	return pk.NewTask(Name, "render pug templates", pk.Do(func(ctx context.Context) error {
		return Run(ctx, cfg)
	}))
}

// Run renders the pug category and writes pages once all rendered.
func Run(ctx context.Context, cfg config.Config) error {
	matches, err := fsutil.Glob(cfg.Root, cfg.Pug.Patterns)
	if err != nil {
		return err
	}

	r := newRenderer(cfg.Mode)
	dest := cfg.DestPath(cfg.Pug)

	type page struct {
		path string
		html []byte
	}
	var pages []page
	for _, m := range matches {
		if fsutil.IsPartial(m.Rel) {
			continue
		}
		src, err := jade.ParseFile(m.Path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", m.Rel, err)
		}
		out := fsutil.ReplaceExt(m.Rel, ".html")
		data, err := r.render(m.Rel, src, newPage(cfg.Mode, out))
		if err != nil {
			return err
		}
		pages = append(pages, page{path: filepath.Join(dest, out), html: data})
	}
	if len(pages) == 0 {
		return nil
	}

	for _, p := range pages {
		if err := fsutil.WriteFile(p.path, p.html); err != nil {
			return err
		}
	}
	pk.Printf(ctx, "  %d pages → %s\n", len(pages), cfg.Rel(dest))
	return nil
}

func newPage(mode config.Mode, out string) Page {
	rel := filepath.ToSlash(out)
	depth := strings.Count(path.Clean(rel), "/")
	return Page{
		Mode:        mode.String(),
		Development: mode == config.Development,
		Production:  mode == config.Production,
		Path:        rel,
		Root:        strings.Repeat("../", depth),
	}
}

type renderer struct {
	funcs template.FuncMap
	// Exactly one of pretty and min applies: development output is
	// indented, production output minified.
	pretty bool
	min    *minify.M
}

func newRenderer(mode config.Mode) *renderer {
	r := &renderer{
		funcs: template.FuncMap{
			"markdown": renderMarkdown,
		},
		pretty: mode == config.Development,
	}
	if mode == config.Production {
		m := minify.New()
		m.Add("text/html", &html.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
		m.AddFunc("text/css", css.Minify)
		m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
		r.min = m
	}
	return r
}

// render executes a template produced by jade. Development output is
// indented, production output minified.
func (r *renderer) render(name, src string, p Page) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(r.funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	if r.pretty {
		return hpp.Print(&buf), nil
	}
	if r.min == nil {
		return buf.Bytes(), nil
	}
	out, err := r.min.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify %s: %w", name, err)
	}
	return out, nil
}

// renderMarkdown converts markdown to HTML for use inside templates:
//
//	div!= markdown "# Title"
func renderMarkdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(s), p, renderer))
}
