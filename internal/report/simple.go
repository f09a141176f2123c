package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/htmldepth/internal/model"
)

// historyTimeFormat is used for timestamps in text output.
const historyTimeFormat = "2006-01-02 15:04:05 MST"

// SimpleWriter prints plain text for terminals and pipes.
type SimpleWriter struct {
	baseWriter

	// showURL prefixes each line with its locator. Enabled automatically
	// when more than one analysis is written.
	showURL bool

	// verbose adds an indented detail line per analysis.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowURL always prefixes lines with the locator.
func WithShowURL(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showURL = show
	}
}

// WithVerbose adds depth, line, and failure details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints one line per analysis. A single analysis prints only its
// output (the deepest text, "malformed HTML", or "URL connection error").
func (w *SimpleWriter) Write(analyses []*model.Analysis) (int, error) {
	done := completed(analyses)
	showURL := w.showURL || len(done) > 1

	var sb strings.Builder
	for _, a := range done {
		if showURL {
			fmt.Fprintf(&sb, "%s: %s\n", a.URL, a.Output())
		} else {
			sb.WriteString(a.Output())
			sb.WriteString("\n")
		}
		if w.verbose {
			w.writeDetail(&sb, a)
		}
	}

	return io.WriteString(w.output, sb.String())
}

// writeDetail writes an indented line explaining the verdict.
func (w *SimpleWriter) writeDetail(sb *strings.Builder, a *model.Analysis) {
	switch a.Status {
	case model.StatusOK:
		fmt.Fprintf(sb, "  depth=%d lines=%d tags=%d max_nesting=%d elapsed=%s\n",
			a.Depth, a.Stats.Lines, a.Stats.TagsOpened, a.Stats.MaxNesting, a.Duration.Round(time.Millisecond))
	case model.StatusMalformed:
		if a.Line > 0 {
			fmt.Fprintf(sb, "  reason: line %d: %s\n", a.Line, a.Reason)
		} else {
			fmt.Fprintf(sb, "  reason: %s\n", a.Reason)
		}
	case model.StatusConnectionError:
		fmt.Fprintf(sb, "  error: %s\n", a.Error)
	}
}

// WriteHistory prints a summary followed by one line per stored analysis.
func (w *SimpleWriter) WriteHistory(history *History) (int, error) {
	var sb strings.Builder

	if history.URL != "" {
		fmt.Fprintf(&sb, "History: %s\n", history.URL)
	}
	if s := history.Summary; s != nil {
		fmt.Fprintf(&sb, "Total: %d (ok %d, malformed %d, connection errors %d)\n",
			s.Total, s.OK, s.Malformed, s.ConnectionErrors)
		if s.Total > 0 {
			fmt.Fprintf(&sb, "First: %s\nLast:  %s\n",
				s.FirstAnalyzed.Local().Format(historyTimeFormat),
				s.LastAnalyzed.Local().Format(historyTimeFormat))
		}
		sb.WriteString("\n")
	}

	if len(history.Analyses) == 0 {
		sb.WriteString("No analyses recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	for _, a := range history.Analyses {
		fmt.Fprintf(&sb, "%s  %-16s  ", a.StartedAt.Local().Format(historyTimeFormat), a.Status)
		if history.URL == "" {
			fmt.Fprintf(&sb, "%s: ", a.URL)
		}
		sb.WriteString(a.Output())
		sb.WriteString("\n")
		if w.verbose {
			fmt.Fprintf(&sb, "  id=%s\n", a.ID)
			w.writeDetail(&sb, a)
		}
	}

	return io.WriteString(w.output, sb.String())
}

// WriteURLs prints one URL per line.
func (w *SimpleWriter) WriteURLs(urls []string) (int, error) {
	if len(urls) == 0 {
		return io.WriteString(w.output, "No analyses recorded.\n")
	}
	return io.WriteString(w.output, strings.Join(urls, "\n")+"\n")
}
