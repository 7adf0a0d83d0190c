package pk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Output holds stdout and stderr writers for task output.
// This is passed through the Runnable chain to direct output appropriately.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// StdOutput returns an Output that writes to os.Stdout and os.Stderr.
func StdOutput() *Output {
	return &Output{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Printf formats and prints to the context's stdout.
func Printf(ctx context.Context, format string, a ...any) {
	_, _ = fmt.Fprintf(OutputFromContext(ctx).Stdout, format, a...)
}

// Println prints to the context's stdout with a newline.
func Println(ctx context.Context, a ...any) {
	_, _ = fmt.Fprintln(OutputFromContext(ctx).Stdout, a...)
}

// Errorf formats and prints to the context's stderr.
func Errorf(ctx context.Context, format string, a ...any) {
	_, _ = fmt.Fprintf(OutputFromContext(ctx).Stderr, format, a...)
}

// bufferedOutput captures output per-goroutine for parallel execution.
// Flushes to parent Output on completion.
type bufferedOutput struct {
	parent *Output
	mu     sync.Mutex
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// newBufferedOutput creates a new buffered output that will flush to parent.
func newBufferedOutput(parent *Output) *bufferedOutput {
	return &bufferedOutput{parent: parent}
}

// Output returns an Output that writes to the internal buffers.
// The writers are safe for concurrent use.
func (b *bufferedOutput) Output() *Output {
	return &Output{
		Stdout: &lockedWriter{mu: &b.mu, w: &b.stdout},
		Stderr: &lockedWriter{mu: &b.mu, w: &b.stderr},
	}
}

// Flush writes all buffered content to the parent output.
// This should be called with external synchronization when used in parallel.
func (b *bufferedOutput) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stdout.Len() > 0 {
		_, _ = b.parent.Stdout.Write(b.stdout.Bytes())
		b.stdout.Reset()
	}
	if b.stderr.Len() > 0 {
		_, _ = b.parent.Stderr.Write(b.stderr.Bytes())
		b.stderr.Reset()
	}
}

// lockedWriter wraps a writer with a mutex for safe concurrent writes.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
