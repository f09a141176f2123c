// Package report renders analyses and analysis history.
//
// SimpleWriter prints one line per locator, exactly the text a user expects
// from the analyzer. JSONWriter and MarkdownWriter produce documents for
// tools and for sharing. All writers implement Writer.
package report
