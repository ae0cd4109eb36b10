package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// output holds the global output settings and destinations.
type output struct {
	JSON  bool
	Quiet bool

	stdout io.Writer
	stderr io.Writer
}

// PrintResult writes data as indented JSON in --json mode, otherwise as
// plain lines.
func (o *output) PrintResult(data any) {
	if o.JSON {
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(data)
		return
	}

	switch v := data.(type) {
	case string:
		_, _ = fmt.Fprintln(o.stdout, v)
	case []string:
		for _, s := range v {
			_, _ = fmt.Fprintln(o.stdout, s)
		}
	default:
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(data)
	}
}

// PrintInfo prints an info message unless quiet.
func (o *output) PrintInfo(format string, args ...any) {
	if !o.Quiet && !o.JSON {
		_, _ = fmt.Fprintf(o.stdout, format, args...)
	}
}

// PrintError prints to stderr.
func (o *output) PrintError(format string, args ...any) {
	_, _ = fmt.Fprintf(o.stderr, format, args...)
}

// bar returns a spinner-style progress bar, or nil in quiet or JSON mode.
func (o *output) bar(description string) *progressbar.ProgressBar {
	if o.Quiet || o.JSON {
		return nil
	}
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(o.stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// tick advances bar by one; it is safe to call from several goroutines.
func tick(bar *progressbar.ProgressBar) func(string) {
	return func(string) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}
}

func finish(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
