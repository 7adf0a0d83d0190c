// Package scaffold generates the starting layout of a sitebuild project.
package scaffold

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/sitebuild.hcl.tmpl
var configTemplate string

//go:embed templates/gitignore.tmpl
var gitignoreTemplate string

//go:embed templates/main.scss.tmpl
var sassTemplate string

//go:embed templates/variables.scss.tmpl
var sassVariablesTemplate string

//go:embed templates/main.js.tmpl
var jsTemplate string

//go:embed templates/index.pug.tmpl
var pugTemplate string

// File is a generated file, relative to the project root.
type File struct {
	Path    string
	Content string
}

// Files returns every file GenerateAll writes.
func Files() []File {
	return []File{
		{"sitebuild.hcl", configTemplate},
		{".gitignore", gitignoreTemplate},
		{"assets/sass/main.scss", sassTemplate},
		{"assets/sass/_variables.scss", sassVariablesTemplate},
		{"assets/js/main.js", jsTemplate},
		{"assets/pug/index.pug", pugTemplate},
	}
}

// Dirs are created empty so every asset category has a home.
var Dirs = []string{"assets/fonts", "assets/images"}

// GenerateAll creates the scaffold under root and returns the paths it
// wrote. Existing files are never overwritten.
func GenerateAll(root string) ([]string, error) {
	for _, dir := range Dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	var written []string
	for _, f := range Files() {
		path := filepath.Join(root, filepath.FromSlash(f.Path))
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("creating %s: %w", filepath.Dir(f.Path), err)
		}
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}
