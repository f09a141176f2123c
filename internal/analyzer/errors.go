package analyzer

import "errors"

// Reasons a document is classified as malformed.
// They never appear in the rendered verdict, which is always MalformedText;
// they exist so callers and tests can tell violations apart with errors.Is.
var (
	// ErrUnexpectedClose is returned for a closing tag while no element is open.
	ErrUnexpectedClose = errors.New("closing tag without open element")

	// ErrMismatchedClose is returned for a closing tag whose name differs
	// from the innermost open element.
	ErrMismatchedClose = errors.New("closing tag does not match innermost open element")

	// ErrInvalidLine is returned for a line containing '<' or '>' that is not
	// a clean opening or closing tag (attributes, bad names, stray brackets).
	ErrInvalidLine = errors.New("line is neither a valid tag nor plain text")

	// ErrUnclosedTag is returned when elements remain open at end of input.
	ErrUnclosedTag = errors.New("element left open at end of document")

	// ErrNoText is returned when a document contains no text line at all.
	ErrNoText = errors.New("document contains no text")
)
