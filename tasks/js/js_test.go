package js

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/pk"
)

func testContext() context.Context {
	return pk.WithOutput(context.Background(), &pk.Output{Stdout: io.Discard, Stderr: io.Discard})
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const mainJS = `import { greet } from "./lib/greet.js";

const message = greet("world");
document.body.textContent = message;
`

const greetJS = `export function greet(name) {
  const greeting = "Hello, " + name;
  return greeting;
}
`

func setup(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "assets/js/main.js", mainJS)
	writeFile(t, root, "assets/js/lib/greet.js", greetJS)
	return root
}

func TestRun_Development(t *testing.T) {
	root := setup(t)
	cfg := config.Default(root, config.Development)

	require.NoError(t, Run(testContext(), cfg))

	dest := cfg.DestPath(cfg.JS)
	out, err := os.ReadFile(filepath.Join(dest, "main.js"))
	require.NoError(t, err)
	require.Contains(t, string(out), "function greet(name)")
	require.Contains(t, string(out), "//# sourceMappingURL=main.js.map")
	require.FileExists(t, filepath.Join(dest, "main.js.map"))

	// Only top-level files are entry points; imports are bundled in.
	require.NoFileExists(t, filepath.Join(dest, "lib", "greet.js"))
}

func TestRun_Production(t *testing.T) {
	root := setup(t)
	cfg := config.Default(root, config.Production)

	require.NoError(t, Run(testContext(), cfg))

	dest := cfg.DestPath(cfg.JS)
	out, err := os.ReadFile(filepath.Join(dest, "main.js"))
	require.NoError(t, err)
	require.NotContains(t, string(out), "function greet(name)")
	require.NotContains(t, string(out), "sourceMappingURL")
	require.NoFileExists(t, filepath.Join(dest, "main.js.map"))
	require.Less(t, strings.Count(string(out), "\n"), 3)
}

func TestRun_SyntaxErrorWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "assets/js/ok.js", "console.log(1);\n")
	writeFile(t, root, "assets/js/broken.js", "const = ;\n")
	cfg := config.Default(root, config.Development)

	err := Run(testContext(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.js")
	require.NoDirExists(t, cfg.DestPath(cfg.JS))
}

func TestRun_NoEntryPoints(t *testing.T) {
	cfg := config.Default(t.TempDir(), config.Development)
	require.NoError(t, Run(testContext(), cfg))
	require.NoDirExists(t, cfg.DestPath(cfg.JS))
}
