package analyzer

import (
	"iter"
	"strings"
	"unicode"
)

// Tag delimiters of the restricted dialect.
const (
	closeMarker   = "</"
	openMarker    = "<"
	tagTerminator = ">"
)

// Kind is the classification of a single non-blank line.
type Kind int

const (
	// KindText is a plain text snippet with no angle brackets.
	KindText Kind = iota

	// KindOpeningTag is a line of the form <name>.
	KindOpeningTag

	// KindClosingTag is a line of the form </name>.
	KindClosingTag

	// KindInvalid is a line that looks tag-like but is not a clean tag.
	KindInvalid
)

// String returns the kind name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindOpeningTag:
		return "opening_tag"
	case KindClosingTag:
		return "closing_tag"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Line is one classified input line.
type Line struct {
	// Number is the 1-based position of the line in the input,
	// counting blank lines. Zero when the line was classified directly.
	Number int

	// Content is the trimmed line.
	Content string

	// Kind is the classification of Content.
	Kind Kind

	// Name is the tag name for opening and closing tags, as written.
	Name string
}

// Classify classifies a trimmed, non-empty line.
//
// Closing tags are checked before opening tags because "</x>" also starts
// with the opening marker. Any other line carrying '<' or '>' is invalid
// rather than text.
func Classify(line string) Line {
	l := Line{Content: line}

	switch {
	case strings.HasPrefix(line, closeMarker) && strings.HasSuffix(line, tagTerminator):
		l.Kind, l.Name = tagKind(line[len(closeMarker):len(line)-len(tagTerminator)], KindClosingTag)
	case strings.HasPrefix(line, openMarker) && strings.HasSuffix(line, tagTerminator):
		l.Kind, l.Name = tagKind(line[len(openMarker):len(line)-len(tagTerminator)], KindOpeningTag)
	case strings.ContainsAny(line, openMarker+tagTerminator):
		l.Kind = KindInvalid
	default:
		l.Kind = KindText
	}

	return l
}

// tagKind validates the text between the tag delimiters.
func tagKind(inner string, kind Kind) (Kind, string) {
	name := trimLine(inner)
	if !IsValidTagName(name) {
		return KindInvalid, ""
	}
	return kind, name
}

// IsValidTagName reports whether name is a letter followed by any number
// of letters or digits.
func IsValidTagName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// trimLine strips leading and trailing control characters and ASCII
// spaces. Unicode spaces such as U+00A0 are content.
func trimLine(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
}

// Classified trims and classifies each raw line lazily, skipping lines
// that are blank after trimming. Line numbers count blank lines so they
// match the source document.
func Classified(lines iter.Seq[string]) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		n := 0
		for raw := range lines {
			n++
			trimmed := trimLine(raw)
			if trimmed == "" {
				continue
			}
			l := Classify(trimmed)
			l.Number = n
			if !yield(l) {
				return
			}
		}
	}
}
