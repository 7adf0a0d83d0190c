package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fredrikaverpil/sitebuild/pk"
)

func TestReport(t *testing.T) {
	results := []pk.TaskResult{
		{Task: "clean", Duration: 1200 * time.Microsecond},
		{Task: "sass", Err: errors.New("expected \"{\""), Duration: 30 * time.Millisecond},
	}

	var buf strings.Builder
	report(&buf, results, false)

	want := "✓ clean (1ms)\n✗ sass (30ms)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report() mismatch (-want +got):\n%s", diff)
	}
}

func TestReport_Colored(t *testing.T) {
	var buf strings.Builder
	report(&buf, []pk.TaskResult{{Task: "js"}}, true)

	if !strings.Contains(buf.String(), "\x1b[32m✓") {
		t.Errorf("report() = %q, want green check mark", buf.String())
	}
}
