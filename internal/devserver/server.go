// Package devserver serves the build output over HTTP and tells connected
// browsers to reload whenever the output changes.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fredrikaverpil/sitebuild/internal/ctxlog"
	"github.com/fredrikaverpil/sitebuild/internal/watch"
)

// ReloadPath is the WebSocket endpoint browsers connect to.
const ReloadPath = "/__sitebuild/reload"

const shutdownTimeout = 5 * time.Second

// reloadScript connects to ReloadPath and reloads the page on "reload".
// It reconnects when the server restarts.
const reloadScript = `<script>(function(){` +
	`var p=location.protocol==="https:"?"wss:":"ws:";` +
	`function c(){var w=new WebSocket(p+"//"+location.host+"` + ReloadPath + `");` +
	`w.onmessage=function(e){if(e.data==="reload"){location.reload();}};` +
	`w.onclose=function(){setTimeout(c,1000);};}` +
	`c();})();</script>`

// Server is a static file server with live reload.
type Server struct {
	dir      string
	addr     string
	debounce time.Duration
	hub      *hub
}

// New creates a server for the files in dir, listening on addr.
// Output changes within debounce of each other produce a single reload.
func New(dir, addr string, debounce time.Duration) *Server {
	return &Server{
		dir:      dir,
		addr:     addr,
		debounce: debounce,
		hub:      newHub(ctxlog.Discard()),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return ln, nil
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. It watches the output directory and
// notifies browsers of changes. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx).With("component", "devserver")
	s.hub.logger = logger

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		_ = ln.Close()
		return err
	}

	sub, err := watch.Subscribe(ctx, s.dir, watch.Binding{
		Name:     "reload",
		Patterns: []string{"**/*"},
		OnChange: func(context.Context) error {
			n := s.Reload()
			logger.Debug("reload", "clients", n)
			return nil
		},
	}, watch.WithDelay(s.debounce))
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer sub.Close()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("serving", "addr", ln.Addr().String(), "dir", s.dir)

	select {
	case err := <-errCh:
		s.hub.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// Reload tells every connected browser to reload and returns how many were
// notified.
func (s *Server) Reload() int {
	return s.hub.broadcast("reload")
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Handler returns the HTTP handler serving the output directory and the
// reload endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(ReloadPath, s.hub)
	mux.Handle("/", s.files())
	return mux
}

func (s *Server) files() http.Handler {
	fileServer := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		name, ok := s.htmlFile(r.URL.Path)
		if !ok {
			fileServer.ServeHTTP(w, r)
			return
		}

		data, err := os.ReadFile(name)
		if err != nil {
			fileServer.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(injectReload(data))
	})
}

// htmlFile maps a URL path to an HTML file below dir, resolving directory
// paths to their index.html.
func (s *Server) htmlFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	name := filepath.Join(s.dir, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		// Let the file server redirect "/dir" to "/dir/".
		if !strings.HasSuffix(urlPath, "/") {
			return "", false
		}
		name = filepath.Join(name, "index.html")
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			return "", false
		}
	}
	if !strings.EqualFold(filepath.Ext(name), ".html") {
		return "", false
	}
	return name, true
}

// injectReload inserts the reload client before the last </body>, or
// appends it when the document has none.
func injectReload(doc []byte) []byte {
	i := lastIndexFold(doc, "</body>")
	if i < 0 {
		return append(append([]byte{}, doc...), reloadScript...)
	}
	out := make([]byte, 0, len(doc)+len(reloadScript))
	out = append(out, doc[:i]...)
	out = append(out, reloadScript...)
	out = append(out, doc[i:]...)
	return out
}

func lastIndexFold(s []byte, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sub)], []byte(sub)) {
			return i
		}
	}
	return -1
}
