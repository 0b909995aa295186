// Package report renders a readiness report as text, JSON, Markdown or HTML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juststeveking/readycheck/internal/check"
	"github.com/juststeveking/readycheck/internal/loadgen"
	"github.com/juststeveking/readycheck/internal/score"
)

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var extensions = map[string]string{
	FormatText:     ".txt",
	FormatJSON:     ".json",
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
}

// ErrUnknownFormat is returned for an output format with no renderer.
var ErrUnknownFormat = errors.New("unknown report format")

// Document is everything a renderer shows: the verdict plus the load run
// summary when the performance category ran.
type Document struct {
	score.Report
	Load *loadgen.Summary `json:"load,omitempty"`
}

// Write renders doc in the given format.
func Write(w io.Writer, doc Document, format string) error {
	switch format {
	case FormatText:
		return WriteText(w, doc, false)
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatMarkdown:
		return WriteMarkdown(w, doc)
	case FormatHTML:
		return WriteHTML(w, doc)
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteAll writes one timestamped file per format into dir and returns the
// paths written.
func WriteAll(dir string, doc Document, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	stamp := doc.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	base := "readiness-" + stamp.Format("20060102-150405")

	var paths []string
	for _, format := range formats {
		ext, ok := extensions[format]
		if !ok {
			return paths, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
		}
		path := filepath.Join(dir, base+ext)
		if err := writeFile(path, doc, format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, doc Document, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, doc, format); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Verdict is the one-word outcome of a report.
func Verdict(r score.Report) string {
	switch {
	case !r.Scored:
		return "UNSCORED"
	case r.Ready:
		return "READY"
	default:
		return "NOT READY"
	}
}

// findings returns the non-passing results of a category.
func findings(cs score.CategoryScore) []check.Result {
	var out []check.Result
	for _, r := range cs.Results {
		if r.Status != check.StatusPass {
			out = append(out, r)
		}
	}
	return out
}

func formatLatency(ms float64) string {
	if ms == loadgen.LatencyUndefined {
		return "n/a"
	}
	return fmt.Sprintf("%.1fms", ms)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
