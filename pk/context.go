package pk

import (
	"context"
)

// contextKey is the type for context keys in this package.
type contextKey int

const (
	// pathKey is the context key for the current execution path.
	pathKey contextKey = iota
	// verboseKey is the context key for verbose mode.
	verboseKey
	// outputKey is the context key for the Output writers.
	outputKey
	// trackerKey is the context key for the execution tracker.
	trackerKey
)

// PathFromContext returns the directory external commands run in.
// Returns "." if no path is set.
func PathFromContext(ctx context.Context) string {
	if path, ok := ctx.Value(pathKey).(string); ok {
		return path
	}
	return "."
}

// Verbose returns whether verbose mode is enabled in the context.
func Verbose(ctx context.Context) bool {
	if v, ok := ctx.Value(verboseKey).(bool); ok {
		return v
	}
	return false
}

// OutputFromContext returns the Output set on the context.
// Falls back to StdOutput when none is set.
func OutputFromContext(ctx context.Context) *Output {
	if out, ok := ctx.Value(outputKey).(*Output); ok && out != nil {
		return out
	}
	return StdOutput()
}

// WithPath returns a new context with the given execution path.
//
//	ctx = pk.WithPath(ctx, "/home/me/site")
//	pk.Exec(ctx, "sass", "--version") // runs in /home/me/site
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey, path)
}

// WithVerbose returns a new context with verbose mode set.
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, verboseKey, verbose)
}

// WithOutput returns a new context with the given Output.
func WithOutput(ctx context.Context, out *Output) context.Context {
	return context.WithValue(ctx, outputKey, out)
}
