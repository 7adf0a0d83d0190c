// Package watch re-runs work when files matching a set of globs change.
//
// A Subscription binds glob patterns to a callback. The base directories of
// the patterns are watched recursively with fsnotify; directories created
// later are picked up automatically. Reruns of one subscription never
// overlap: changes that arrive while the callback runs queue exactly one
// follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/fsutil"
)

// DefaultDelay is how long a subscription waits for a burst of changes to
// settle before running its callback.
const DefaultDelay = 200 * time.Millisecond

// Binding ties glob patterns to the work they trigger.
type Binding struct {
	// Name identifies the binding in logs.
	Name string
	// Patterns are globs relative to the subscription root.
	Patterns []string
	// OnChange runs after matching files change. A returned error is logged
	// and the subscription keeps listening.
	OnChange func(ctx context.Context) error
}

// Option configures a subscription.
type Option func(*options)

type options struct {
	delay time.Duration
}

// WithDelay sets how long changes are coalesced before the callback runs.
// Zero runs the callback on the first matching event.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// Subscription is an active watch. Release it with Close.
type Subscription struct {
	root    string
	binding Binding
	opts    options
	bases   []string

	watcher *fsnotify.Watcher
	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	watched map[string]bool
	closed  bool
}

// Subscribe starts watching root for changes matching the binding's patterns.
// The subscription ends when ctx is done or Close is called.
func Subscribe(ctx context.Context, root string, b Binding, opts ...Option) (*Subscription, error) {
	if b.OnChange == nil {
		return nil, fmt.Errorf("watch %s: OnChange is required", b.Name)
	}
	if len(b.Patterns) == 0 {
		return nil, fmt.Errorf("watch %s: at least one pattern is required", b.Name)
	}

	o := options{delay: DefaultDelay}
	for _, opt := range opts {
		opt(&o)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch %s: %w", b.Name, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %s is not a directory", b.Name, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", b.Name, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		root:    root,
		binding: b,
		opts:    o,
		watcher: fsw,
		trigger: make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		watched: make(map[string]bool),
	}

	for _, p := range b.Patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
		s.bases = append(s.bases, filepath.Join(root, filepath.FromSlash(base)))
	}
	for _, base := range s.bases {
		if err := s.watchBase(base); err != nil {
			cancel()
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", b.Name, err)
		}
	}

	logger := ctxlog.FromContext(ctx).With("watch", b.Name)
	logger.Debug("subscribed", "root", root, "patterns", b.Patterns, "dirs", len(s.watched))

	s.wg.Add(2)
	go s.eventLoop(ctx)
	go s.runLoop(ctx)
	go func() {
		s.wg.Wait()
		_ = fsw.Close()
		close(s.done)
	}()

	return s, nil
}

// Close stops the subscription and releases the underlying watcher.
// It waits for a running callback to return.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Name returns the binding name.
func (s *Subscription) Name() string {
	return s.binding.Name
}

// watchBase watches base recursively. A base that does not exist yet is
// covered by watching its nearest existing ancestor inside root.
func (s *Subscription) watchBase(base string) error {
	dir := base
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			break
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if dir == s.root {
			return nil
		}
		dir = filepath.Dir(dir)
	}
	if dir != base {
		return s.add(dir)
	}
	return s.addRecursive(base)
}

func (s *Subscription) add(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watched[dir] {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return err
	}
	s.watched[dir] = true
	return nil
}

func (s *Subscription) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The tree may change while it is walked.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return s.add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// skipPath reports whether rel is, or lies below, a skipped directory,
// such as a hidden staging directory created inside the watched tree.
func skipPath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDir(part) {
			return true
		}
	}
	return false
}

// relevant reports whether dir lies on the path to, or inside, a pattern base.
func (s *Subscription) relevant(dir string) bool {
	for _, base := range s.bases {
		if within(dir, base) || within(base, dir) {
			return true
		}
	}
	return false
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func (s *Subscription) eventLoop(ctx context.Context) {
	defer s.wg.Done()
	logger := ctxlog.FromContext(ctx).With("watch", s.binding.Name)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.handle(logger, ev) {
				continue
			}
			logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			if s.opts.delay <= 0 {
				s.signal()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.opts.delay)
			} else {
				timer.Reset(s.opts.delay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			s.signal()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// handle updates the watch set for ev and reports whether ev should
// trigger the callback.
func (s *Subscription) handle(logger *slog.Logger, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || skipPath(rel) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && s.relevant(ev.Name) {
			if err := s.addRecursive(ev.Name); err != nil {
				logger.Warn("watch new directory", "path", ev.Name, "error", err)
			}
			// Files may have landed before the directory was watched.
			if matches, _ := fsutil.Glob(s.root, s.binding.Patterns); s.anyBelow(matches, ev.Name) {
				return true
			}
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		s.mu.Lock()
		wasDir := s.watched[ev.Name]
		if wasDir {
			for dir := range s.watched {
				if within(dir, ev.Name) {
					delete(s.watched, dir)
				}
			}
		}
		s.mu.Unlock()
		if wasDir {
			return true
		}
	}

	return fsutil.MatchAny(s.binding.Patterns, rel)
}

func (s *Subscription) anyBelow(matches []fsutil.Match, dir string) bool {
	for _, m := range matches {
		if within(m.Path, dir) {
			return true
		}
	}
	return false
}

// signal queues a run. At most one run is pending at any time.
func (s *Subscription) signal() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Subscription) runLoop(ctx context.Context) {
	defer s.wg.Done()
	logger := ctxlog.FromContext(ctx).With("watch", s.binding.Name)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		}

		start := time.Now()
		if err := s.binding.OnChange(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("rerun failed", "error", err, "duration", time.Since(start))
			continue
		}
		logger.Debug("rerun finished", "duration", time.Since(start))
	}
}
