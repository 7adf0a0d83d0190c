package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaverpil/sitebuild/internal/config"
)

func TestGenerateAll(t *testing.T) {
	root := t.TempDir()

	written, err := GenerateAll(root)
	require.NoError(t, err)
	require.Len(t, written, len(Files()))
	for _, dir := range Dirs {
		require.DirExists(t, filepath.Join(root, filepath.FromSlash(dir)))
	}

	cfg, err := config.Load(root, func(string) string { return "" })
	require.NoError(t, err)
	require.Equal(t, 90, cfg.ImageQuality)
	require.Equal(t, "dist", cfg.OutputDir)
}

func TestGenerateAll_KeepsExistingFiles(t *testing.T) {
	root := t.TempDir()
	custom := filepath.Join(root, "sitebuild.hcl")
	require.NoError(t, os.WriteFile(custom, []byte(`output_dir = "public"`), 0o644))

	written, err := GenerateAll(root)
	require.NoError(t, err)
	require.NotContains(t, written, "sitebuild.hcl")

	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	require.Equal(t, `output_dir = "public"`, string(data))

	again, err := GenerateAll(root)
	require.NoError(t, err)
	require.Empty(t, again)
}
