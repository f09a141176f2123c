package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/htmldepth/internal/analyzer"
)

// ConnectionErrorText is printed when a document could not be retrieved.
const ConnectionErrorText = "URL connection error"

// Analysis records one locator's fetch and scan.
type Analysis struct {
	// ID uniquely identifies the analysis in the history database.
	ID string `json:"id"`

	// URL is the locator as given by the user.
	URL string `json:"url"`

	// Status is the outcome.
	Status Status `json:"status"`

	// Text is the deepest text line. Empty unless Status is StatusOK.
	Text string `json:"text,omitempty"`

	// Depth is the nesting depth of Text.
	Depth int `json:"depth"`

	// Reason explains a malformed verdict.
	Reason string `json:"reason,omitempty"`

	// Line is the 1-based line of the violation, zero when not tied to a line.
	Line int `json:"line,omitempty"`

	// Stats are the scan counters.
	Stats analyzer.Stats `json:"stats"`

	// Error is the transport failure for StatusConnectionError.
	Error string `json:"error,omitempty"`

	// DocumentHash is the SHA-256 of the fetched document.
	DocumentHash string `json:"document_hash,omitempty"`

	// DocumentSize is the fetched document length in bytes.
	DocumentSize int `json:"document_size"`

	// StartedAt is when the analysis began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of fetch and scan together.
	Duration time.Duration `json:"duration"`

	// Document is the fetched text. It is never serialized.
	Document string `json:"-"`
}

// NewAnalysis starts an analysis of url.
func NewAnalysis(url string) *Analysis {
	return &Analysis{
		ID:        uuid.NewString(),
		URL:       url,
		StartedAt: time.Now(),
	}
}

// SetDocument stores the fetched text and its hash and size.
func (a *Analysis) SetDocument(text string) {
	a.Document = text
	a.DocumentSize = len(text)
	if text == "" {
		a.DocumentHash = ""
		return
	}
	sum := sha256.Sum256([]byte(text))
	a.DocumentHash = hex.EncodeToString(sum[:])
}

// ApplyResult records a scan verdict.
func (a *Analysis) ApplyResult(r analyzer.Result) {
	a.Stats = r.Stats
	a.Error = ""

	if r.Malformed() {
		a.Status = StatusMalformed
		a.Text = ""
		a.Depth = 0
		a.Line = r.Line
		if r.Reason != nil {
			a.Reason = r.Reason.Error()
		}
		return
	}

	a.Status = StatusOK
	a.Text = r.Text
	a.Depth = r.Depth
	a.Reason = ""
	a.Line = 0
}

// ApplyTransportError records a failed fetch. No verdict is kept.
func (a *Analysis) ApplyTransportError(err error) {
	a.Status = StatusConnectionError
	a.Text = ""
	a.Depth = 0
	a.Reason = ""
	a.Line = 0
	a.Stats = analyzer.Stats{}
	if err != nil {
		a.Error = err.Error()
	}
}

// Finish sets Duration from StartedAt.
func (a *Analysis) Finish() {
	a.Duration = time.Since(a.StartedAt)
}

// Output returns the single line shown to the user: the deepest text,
// analyzer.MalformedText, or ConnectionErrorText. It is empty while the
// analysis is unfinished.
func (a *Analysis) Output() string {
	switch a.Status {
	case StatusOK:
		return a.Text
	case StatusMalformed:
		return analyzer.MalformedText
	case StatusConnectionError:
		return ConnectionErrorText
	default:
		return ""
	}
}
