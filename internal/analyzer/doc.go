// Package analyzer finds the deepest text snippet in a restricted-dialect
// HTML document.
//
// The dialect is line oriented: every non-blank line is exactly one of an
// opening tag (<name>), a closing tag (</name>), or a plain text snippet.
// Tags carry no attributes, are never self-closing, and never share a line
// with text or other tags. Leading and trailing whitespace and blank lines
// are ignored.
//
// # Scan
//
// A document is consumed as a lazy sequence of classified lines and folded
// into a single Result. The fold keeps a stack of open tag names whose
// length is the current nesting depth. The first text line seen at the
// greatest depth wins; later text at the same depth does not replace it.
//
// Any structural violation stops the scan immediately:
//   - a closing tag with no open element, or one that does not match the
//     innermost open element (names compare case-insensitively)
//   - a line that looks tag-like but is not a clean, attribute-free tag
//   - elements still open at the end of input
//   - a document with no text line at all
//
// All of these collapse into the single Malformed verdict, rendered as
// "malformed HTML". Result.Reason keeps the specific cause for diagnostics.
//
// # Usage
//
//	result := analyzer.Analyze("<a>\n<b>\nHello\n</b>\n</a>")
//	fmt.Println(result) // Hello
//
// The scan performs no I/O and holds no shared state, so concurrent calls
// are safe.
package analyzer
