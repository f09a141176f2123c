// Package database stores analysis history in SQLite.
//
// The HistoryDB keeps one row per analysis in a single file under the XDG
// data directory, using the CGO-free modernc.org/sqlite driver in WAL mode.
// Fetched documents are never stored; only their hash and size are.
package database
