package analyzer

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// MalformedText is the rendered form of the Malformed verdict.
const MalformedText = "malformed HTML"

// Verdict is the terminal classification of a document.
type Verdict int

const (
	// VerdictText means the document is well formed and has a deepest snippet.
	VerdictText Verdict = iota + 1

	// VerdictMalformed means the document violated the dialect or had no text.
	VerdictMalformed
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictText:
		return "text"
	case VerdictMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Stats describes how much of the document was scanned.
type Stats struct {
	// Lines is the number of non-blank lines consumed before the verdict.
	Lines int `json:"lines"`

	// TagsOpened is the number of opening tags consumed.
	TagsOpened int `json:"tags_opened"`

	// MaxNesting is the deepest element nesting reached, with or without text.
	MaxNesting int `json:"max_nesting"`
}

// Result is the outcome of analysing one document.
type Result struct {
	// Verdict is VerdictText or VerdictMalformed.
	Verdict Verdict

	// Text is the first snippet found at the greatest depth.
	// Empty unless Verdict is VerdictText.
	Text string

	// Depth is the number of elements open around Text.
	Depth int

	// Reason is the sentinel error explaining a malformed verdict.
	Reason error

	// Line is the 1-based input line the violation was detected at,
	// or the line that opened the innermost unclosed element.
	// Zero when the reason has no position (ErrNoText).
	Line int

	// Stats describes the scan.
	Stats Stats
}

// String renders the verdict: the snippet itself, or MalformedText.
func (r Result) String() string {
	if r.Verdict == VerdictText {
		return r.Text
	}
	return MalformedText
}

// Malformed reports whether the document was rejected.
func (r Result) Malformed() bool {
	return r.Verdict != VerdictText
}

// Err returns the malformed reason annotated with its line, or nil.
func (r Result) Err() error {
	if !r.Malformed() {
		return nil
	}
	if r.Line > 0 {
		return fmt.Errorf("line %d: %w", r.Line, r.Reason)
	}
	return r.Reason
}

// Analyze splits text on line feeds and analyses the lines.
// Carriage returns are removed by trimming.
func Analyze(text string) Result {
	return AnalyzeSeq(strings.SplitSeq(text, "\n"))
}

// AnalyzeLines analyses an already split document.
func AnalyzeLines(lines []string) Result {
	return AnalyzeSeq(slices.Values(lines))
}

// AnalyzeSeq analyses a lazy sequence of raw lines. The sequence is not
// pulled past the first structural violation.
func AnalyzeSeq(lines iter.Seq[string]) Result {
	s := newScanState()
	for line := range Classified(lines) {
		if s.step(line) {
			return s.result
		}
	}
	return s.finish()
}

// openTag is an entry of the open-element stack.
type openTag struct {
	name string
	line int
}

// scanState is the fold accumulator. It is owned by a single scan.
type scanState struct {
	stack []openTag

	// fold compares tag names case-insensitively. A Caser is stateful,
	// so every scan gets its own.
	fold cases.Caser

	found  bool
	result Result
}

func newScanState() *scanState {
	return &scanState{fold: cases.Fold()}
}

// step applies one line and reports whether the scan has terminated.
func (s *scanState) step(l Line) bool {
	s.result.Stats.Lines++

	switch l.Kind {
	case KindOpeningTag:
		s.stack = append(s.stack, openTag{name: l.Name, line: l.Number})
		s.result.Stats.TagsOpened++
		s.result.Stats.MaxNesting = max(s.result.Stats.MaxNesting, len(s.stack))
	case KindClosingTag:
		if len(s.stack) == 0 {
			s.malformed(ErrUnexpectedClose, l.Number)
			return true
		}
		top := s.stack[len(s.stack)-1]
		if s.fold.String(top.name) != s.fold.String(l.Name) {
			s.malformed(ErrMismatchedClose, l.Number)
			return true
		}
		s.stack = s.stack[:len(s.stack)-1]
	case KindText:
		if depth := len(s.stack); !s.found || depth > s.result.Depth {
			s.found = true
			s.result.Depth = depth
			s.result.Text = l.Content
		}
	default:
		s.malformed(ErrInvalidLine, l.Number)
		return true
	}

	return false
}

// finish produces the verdict after the last line.
func (s *scanState) finish() Result {
	switch {
	case len(s.stack) > 0:
		s.malformed(ErrUnclosedTag, s.stack[len(s.stack)-1].line)
	case !s.found:
		s.malformed(ErrNoText, 0)
	default:
		s.result.Verdict = VerdictText
	}
	return s.result
}

func (s *scanState) malformed(reason error, line int) {
	s.result.Verdict = VerdictMalformed
	s.result.Text = ""
	s.result.Depth = 0
	s.result.Reason = reason
	s.result.Line = line
}
