package pk

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestTask_PrintsHeader(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithOutput(context.Background(), &Output{Stdout: &buf, Stderr: &bytes.Buffer{}})

	task := NewTask("fonts", "copy fonts", Do(func(ctx context.Context) error {
		Println(ctx, "copied 2 files")
		return nil
	}))
	if err := task.run(ctx); err != nil {
		t.Fatal(err)
	}

	if got, want := buf.String(), ":: fonts\ncopied 2 files\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTask_WrapsLeafError(t *testing.T) {
	errBoom := errors.New("boom")
	task := NewTask("js", "", Do(func(context.Context) error { return errBoom }))

	err := task.run(WithOutput(context.Background(), testOutput()))

	var te *TaskError
	if !errors.As(err, &te) {
		t.Fatalf("expected TaskError, got %T", err)
	}
	if te.Task != "js" {
		t.Errorf("expected task js, got %q", te.Task)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected error to unwrap to errBoom")
	}
	if got, want := err.Error(), "task js: boom"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTask_CompositeKeepsLeafName(t *testing.T) {
	leaf := NewTask("sass", "", Do(func(context.Context) error { return errors.New("syntax error") }))
	build := NewTask("build", "", Serial(leaf))

	err := build.run(WithOutput(context.Background(), testOutput()))

	var te *TaskError
	if !errors.As(err, &te) || te.Task != "sass" {
		t.Fatalf("expected failure attributed to sass, got %v", err)
	}
}

func TestTask_NoBody(t *testing.T) {
	task := NewTask("empty", "", nil)
	if err := task.run(context.Background()); err == nil {
		t.Fatal("expected error for task without body")
	}
}

func TestTask_RecordsToTracker(t *testing.T) {
	tracker := newExecutionTracker()
	ctx := withExecutionTracker(WithOutput(context.Background(), testOutput()), tracker)

	task := NewTask("clean", "", Do(func(context.Context) error { return nil }))
	if err := task.run(ctx); err != nil {
		t.Fatal(err)
	}

	results := tracker.executed()
	if len(results) != 1 || results[0].Task != "clean" || results[0].Err != nil {
		t.Errorf("unexpected results: %v", results)
	}
}
