package pk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestDownload_ExtractsTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "tool.tar.gz")
	writeTarGz(t, archive, []archiveEntry{{"tool/bin/tool", "binary"}})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archive)
	}))
	defer srv.Close()

	dest := filepath.Join(dir, "install")
	err := Download(srv.URL+"/tool.tar.gz",
		WithDestDir(dest),
		WithFormat("tar.gz"),
		WithExtract(WithStripComponents(1)),
		WithHTTPClient(srv.Client()),
	).run(WithOutput(context.Background(), testOutput()))
	if err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, filepath.Join(dest, "bin", "tool")); got != "binary" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestDownload_RawCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw"))
	}))
	defer srv.Close()

	dest := t.TempDir()
	err := Download(srv.URL+"/files/tool", WithDestDir(dest)).
		run(WithOutput(context.Background(), testOutput()))
	if err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dest, "tool")); got != "raw" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestDownload_SkipIfExists(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dest := t.TempDir()
	marker := filepath.Join(dest, "sass")
	if err := os.WriteFile(marker, []byte("installed"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := Download(srv.URL+"/sass", WithDestDir(dest), WithSkipIfExists(marker)).
		run(WithOutput(context.Background(), testOutput()))
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 0 {
		t.Error("expected no request when the marker file exists")
	}
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := Download(srv.URL+"/missing", WithDestDir(t.TempDir())).
		run(WithOutput(context.Background(), testOutput()))
	if err == nil {
		t.Fatal("expected error for 404")
	}
}
