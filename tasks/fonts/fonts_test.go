package fonts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/pk"
)

func testContext() context.Context {
	return pk.WithOutput(context.Background(), &pk.Output{Stdout: io.Discard, Stderr: io.Discard})
}

func TestRun_CopiesPreservingPaths(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root, config.Development)
	files := map[string]string{
		"assets/fonts/roboto.woff2":      "roboto",
		"assets/fonts/mono/fira.woff":    "fira",
		"assets/fonts/mono/LICENSE":      "no extension, not matched",
		"assets/images/not-a-font.woff2": "other category",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	require.NoError(t, Run(testContext(), cfg))

	dest := cfg.DestPath(cfg.Fonts)
	data, err := os.ReadFile(filepath.Join(dest, "roboto.woff2"))
	require.NoError(t, err)
	require.Equal(t, "roboto", string(data))
	require.FileExists(t, filepath.Join(dest, "mono", "fira.woff"))
	require.NoFileExists(t, filepath.Join(dest, "mono", "LICENSE"))
	require.NoFileExists(t, filepath.Join(dest, "not-a-font.woff2"))
}

func TestRun_NoMatchesProducesNothing(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root, config.Development)

	require.NoError(t, Run(testContext(), cfg))
	require.NoDirExists(t, cfg.DestPath(cfg.Fonts))
}
