package report

import (
	"io"

	"github.com/nao1215/htmldepth/internal/model"
)

// History is the stored record of one URL, or of every URL when URL is empty.
type History struct {
	// URL is the queried locator. Empty means all locators.
	URL string `json:"url,omitempty"`

	// Summary counts analyses by status. Nil when URL is empty.
	Summary *model.Summary `json:"summary,omitempty"`

	// Analyses are newest first.
	Analyses []*model.Analysis `json:"analyses"`
}

// Writer renders analyses.
type Writer interface {
	// Write renders the results of one run in input order. Nil entries
	// (analyses that never started) are skipped.
	Write(analyses []*model.Analysis) (int, error)

	// WriteHistory renders stored analyses.
	WriteHistory(history *History) (int, error)

	// WriteURLs renders the list of analysed URLs.
	WriteURLs(urls []string) (int, error)
}

// MultiWriter writes to several Writers in turn and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(analyses []*model.Analysis) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(analyses)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory implements Writer.
func (m *MultiWriter) WriteHistory(history *History) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(history)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteURLs implements Writer.
func (m *MultiWriter) WriteURLs(urls []string) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteURLs(urls)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// completed drops analyses that never started.
func completed(analyses []*model.Analysis) []*model.Analysis {
	out := make([]*model.Analysis, 0, len(analyses))
	for _, a := range analyses {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}
