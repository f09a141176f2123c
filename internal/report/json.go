package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/htmldepth/internal/model"
)

// JSONWriter outputs JSON documents for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version is recorded in every document when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written for a run.
type JSONReport struct {
	Version     string            `json:"version,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Analyses    []*model.Analysis `json:"analyses"`
}

// JSONHistory is the document written for stored history.
type JSONHistory struct {
	Version     string    `json:"version,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	*History
}

// JSONURLs is the document written for the URL list.
type JSONURLs struct {
	Version     string    `json:"version,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	URLs        []string  `json:"urls"`
}

// Write implements Writer.
func (w *JSONWriter) Write(analyses []*model.Analysis) (int, error) {
	return w.writeJSON(&JSONReport{
		Version:     w.version,
		GeneratedAt: time.Now(),
		Analyses:    completed(analyses),
	})
}

// WriteHistory implements Writer.
func (w *JSONWriter) WriteHistory(history *History) (int, error) {
	h := *history
	if h.Analyses == nil {
		h.Analyses = []*model.Analysis{}
	}
	return w.writeJSON(&JSONHistory{
		Version:     w.version,
		GeneratedAt: time.Now(),
		History:     &h,
	})
}

// WriteURLs implements Writer.
func (w *JSONWriter) WriteURLs(urls []string) (int, error) {
	if urls == nil {
		urls = []string{}
	}
	return w.writeJSON(&JSONURLs{
		Version:     w.version,
		GeneratedAt: time.Now(),
		URLs:        urls,
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
