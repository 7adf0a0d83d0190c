package pk

import (
	"os"
	"path/filepath"
)

// FromCacheDir constructs an absolute path within the sitebuild cache directory.
// The cache lives in the user cache dir so downloaded tools are shared between projects.
//
//	FromCacheDir()        → "/home/me/.cache/sitebuild"
//	FromCacheDir("tools") → "/home/me/.cache/sitebuild/tools"
func FromCacheDir(elem ...string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	parts := append([]string{base, "sitebuild"}, elem...)
	return filepath.Join(parts...)
}

// FromToolsDir constructs an absolute path within the tools cache.
//
//	FromToolsDir("sass", "1.83.0") → "/home/me/.cache/sitebuild/tools/sass/1.83.0"
func FromToolsDir(elem ...string) string {
	parts := append([]string{"tools"}, elem...)
	return FromCacheDir(parts...)
}
