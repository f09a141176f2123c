// Package main provides the entry point for the htmldepth CLI.
//
// htmldepth fetches documents written in a restricted HTML dialect (one tag
// or one text line per line) and prints the text line nested deepest in the
// element tree. Documents that break the dialect print "malformed HTML";
// documents that cannot be retrieved print "URL connection error".
//
// Usage:
//
//	htmldepth analyze <url>
//	htmldepth analyze --json <url>...
//	htmldepth history [url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
