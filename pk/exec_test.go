//go:build unix

package pk

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExec_CapturesOutputOnError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithOutput(context.Background(), &Output{Stdout: &buf, Stderr: &buf})

	err := Exec(ctx, "sh", "-c", "echo compiling; echo 'Error: expected \";\"' >&2; exit 65")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `Error: expected ";"`) {
		t.Errorf("expected stderr in error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing streamed when not verbose, got %q", buf.String())
	}
}

func TestExec_VerboseStreams(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithOutput(context.Background(), &Output{Stdout: &buf, Stderr: &buf})
	ctx = WithVerbose(ctx, true)

	if err := Exec(ctx, "sh", "-c", "echo hello"); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "hello\n" {
		t.Errorf("expected streamed output, got %q", got)
	}
}

func TestExec_RunsInContextPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	ctx := WithOutput(WithPath(context.Background(), dir), &Output{Stdout: &out, Stderr: &out})
	if err := Exec(WithVerbose(ctx, true), "ls"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "marker") {
		t.Errorf("expected command to run in %s, got %q", dir, out.String())
	}
}

func TestDo(t *testing.T) {
	var called bool
	r := Do(func(context.Context) error {
		called = true
		return nil
	})
	if err := r.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("expected function to be called")
	}
}
