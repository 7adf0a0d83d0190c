package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const settle = 2 * time.Second

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// counter is an OnChange callback that reports each run on a channel.
type counter struct {
	runs atomic.Int32
	ch   chan struct{}
}

func newCounter() *counter {
	return &counter{ch: make(chan struct{}, 100)}
}

func (c *counter) onChange(context.Context) error {
	c.runs.Add(1)
	c.ch <- struct{}{}
	return nil
}

func (c *counter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(settle):
		t.Fatal("timed out waiting for callback")
	}
}

func (c *counter) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-c.ch:
		t.Fatal("unexpected callback")
	case <-time.After(d):
	}
}

func TestSubscribe_FiresOnMatchingChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets", "sass", "main.scss"), "a{}")
	c := newCounter()

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "sass",
		Patterns: []string{"assets/**/*.scss"},
		OnChange: c.onChange,
	}, WithDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer sub.Close()

	writeFile(t, filepath.Join(root, "assets", "sass", "main.scss"), "b{}")
	c.wait(t)
}

func TestSubscribe_IgnoresNonMatchingChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets", "js", "main.js"), "")
	c := newCounter()

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "sass",
		Patterns: []string{"assets/**/*.scss"},
		OnChange: c.onChange,
	}, WithDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer sub.Close()

	writeFile(t, filepath.Join(root, "assets", "js", "main.js"), "console.log(1)")
	c.none(t, 300*time.Millisecond)
}

func TestSubscribe_NewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	c := newCounter()

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "images",
		Patterns: []string{"assets/images/**/*.*"},
		OnChange: c.onChange,
	}, WithDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer sub.Close()

	// assets/images does not exist when the subscription starts.
	writeFile(t, filepath.Join(root, "assets", "images", "icons", "logo.png"), "png")
	c.wait(t)

	// Drain any extra runs from the burst above.
	time.Sleep(200 * time.Millisecond)
	for len(c.ch) > 0 {
		<-c.ch
	}

	writeFile(t, filepath.Join(root, "assets", "images", "icons", "logo.png"), "png2")
	c.wait(t)
}

func TestSubscribe_IgnoresHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	c := newCounter()

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "reload",
		Patterns: []string{"**/*"},
		OnChange: c.onChange,
	}, WithDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer sub.Close()

	stage := filepath.Join(root, ".css-stage-1")
	writeFile(t, filepath.Join(stage, "main.css"), "a{}")
	writeFile(t, filepath.Join(stage, "main.css"), "b{}")
	require.NoError(t, os.RemoveAll(stage))
	writeFile(t, filepath.Join(root, "node_modules", "x", "index.js"), "")
	c.none(t, 300*time.Millisecond)

	writeFile(t, filepath.Join(root, "css", "main.css"), "b{}")
	c.wait(t)
}

func TestSkipPath(t *testing.T) {
	for rel, want := range map[string]bool{
		"css/main.css":            false,
		"index.html":              false,
		".css-stage-1":            true,
		".css-stage-1/main.css":   true,
		"node_modules/x/index.js": true,
		"assets/.cache/a.scss":    true,
		"../outside.css":          true,
	} {
		if got := skipPath(filepath.FromSlash(rel)); got != want {
			t.Errorf("skipPath(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestSubscribe_QueuesOneFollowUp(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "assets", "js")
	writeFile(t, filepath.Join(src, "main.js"), "")

	var running, overlapped atomic.Int32
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	var runs atomic.Int32

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "js",
		Patterns: []string{"assets/**/*.js"},
		OnChange: func(ctx context.Context) error {
			if running.Add(1) > 1 {
				overlapped.Add(1)
			}
			defer running.Add(-1)
			n := runs.Add(1)
			started <- struct{}{}
			if n == 1 {
				<-release
			}
			return nil
		},
	}, WithDelay(0))
	require.NoError(t, err)
	defer sub.Close()

	writeFile(t, filepath.Join(src, "main.js"), "1")
	select {
	case <-started:
	case <-time.After(settle):
		t.Fatal("first run did not start")
	}

	// Several changes while the first run is blocked.
	for i := range 3 {
		writeFile(t, filepath.Join(src, "main.js"), string(rune('a'+i)))
		time.Sleep(30 * time.Millisecond)
	}
	close(release)

	select {
	case <-started:
	case <-time.After(settle):
		t.Fatal("follow-up run did not start")
	}
	time.Sleep(300 * time.Millisecond)

	require.Equal(t, int32(2), runs.Load())
	require.Zero(t, overlapped.Load())
}

func TestSubscribe_FailedRunKeepsListening(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "assets", "pug", "index.pug")
	writeFile(t, path, "p hi")

	results := make(chan int32, 10)
	var runs atomic.Int32
	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "pug",
		Patterns: []string{"assets/pug/**/*.pug"},
		OnChange: func(context.Context) error {
			n := runs.Add(1)
			results <- n
			if n == 1 {
				return errors.New("render failed")
			}
			return nil
		},
	}, WithDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer sub.Close()

	writeFile(t, path, "p broken(")
	require.Equal(t, int32(1), receive(t, results))

	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "p fixed")
	require.GreaterOrEqual(t, receive(t, results), int32(2))
}

func receive(t *testing.T, ch <-chan int32) int32 {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(settle):
		t.Fatal("timed out")
		return 0
	}
}

func TestSubscription_Close(t *testing.T) {
	root := t.TempDir()
	c := newCounter()

	sub, err := Subscribe(context.Background(), root, Binding{
		Name:     "fonts",
		Patterns: []string{"**/*.woff2"},
		OnChange: c.onChange,
	}, WithDelay(0))
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}

	writeFile(t, filepath.Join(root, "a.woff2"), "")
	c.none(t, 200*time.Millisecond)
}

func TestSubscription_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Subscribe(ctx, t.TempDir(), Binding{
		Name:     "sass",
		Patterns: []string{"**/*.scss"},
		OnChange: func(context.Context) error { return nil },
	})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(settle):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestSubscribe_Errors(t *testing.T) {
	_, err := Subscribe(context.Background(), t.TempDir(), Binding{Name: "x", Patterns: []string{"*"}})
	require.ErrorContains(t, err, "OnChange is required")

	_, err = Subscribe(context.Background(), t.TempDir(), Binding{
		Name:     "x",
		OnChange: func(context.Context) error { return nil },
	})
	require.ErrorContains(t, err, "at least one pattern")

	_, err = Subscribe(context.Background(), filepath.Join(t.TempDir(), "missing"), Binding{
		Name:     "x",
		Patterns: []string{"*"},
		OnChange: func(context.Context) error { return nil },
	})
	require.Error(t, err)
}
