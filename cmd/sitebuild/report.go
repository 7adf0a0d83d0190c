package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/fredrikaverpil/sitebuild/pk"
)

// report writes one status line per executed task.
func report(w io.Writer, results []pk.TaskResult, colored bool) {
	ok := color.New(color.FgGreen)
	failed := color.New(color.FgRed, color.Bold)
	if colored {
		ok.EnableColor()
		failed.EnableColor()
	} else {
		ok.DisableColor()
		failed.DisableColor()
	}

	for _, r := range results {
		d := r.Duration.Round(time.Millisecond)
		if r.Err != nil {
			fmt.Fprintf(w, "%s %s (%s)\n", failed.Sprint("✗"), r.Task, d)
			continue
		}
		fmt.Fprintf(w, "%s %s (%s)\n", ok.Sprint("✓"), r.Task, d)
	}
}
