// Package fsutil provides the file system helpers shared by the build tasks.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a file selected by a glob pattern.
type Match struct {
	// Path is the absolute path of the file.
	Path string
	// Rel is the path relative to the pattern's base directory, the part of
	// the pattern before its first wildcard. For "assets/fonts/**/*.*" the
	// file assets/fonts/roboto/bold.woff2 has Rel "roboto/bold.woff2".
	Rel string
}

// Glob resolves root-relative patterns to files. A base directory that does
// not exist yields no matches rather than an error. Files matched by more
// than one pattern are returned once. Results are sorted by Rel.
func Glob(root string, patterns []string) ([]Match, error) {
	seen := make(map[string]bool)
	var matches []Match

	for _, pattern := range patterns {
		base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
		dir := filepath.Join(root, filepath.FromSlash(base))

		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		rels, err := doublestar.Glob(os.DirFS(dir), pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, rel := range rels {
			path := filepath.Join(dir, filepath.FromSlash(rel))
			if seen[path] {
				continue
			}
			seen[path] = true
			matches = append(matches, Match{Path: path, Rel: filepath.FromSlash(rel)})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Rel < matches[j].Rel
	})
	return matches, nil
}

// MatchAny reports whether the slash-separated root-relative path matches any
// of the patterns.
func MatchAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(p), rel); ok {
			return true
		}
	}
	return false
}

// IsPartial reports whether a file is an include-only partial such as
// _variables.scss or _layout.pug.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CopyFile copies a file from src to dst, creating parent directories as needed.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return WriteFile(dst, data)
}

// CopyTree copies every regular file below src into dst, preserving
// relative paths.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return CopyFile(path, filepath.Join(dst, rel))
	})
}

// RemoveContents deletes everything inside dir but keeps dir itself.
// A missing dir is not an error.
func RemoveContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceExt swaps the extension of path.
//
//	ReplaceExt("pages/index.pug", ".html") → "pages/index.html"
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
