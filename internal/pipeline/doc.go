// Package pipeline runs analyses as a sequence of steps.
//
// A Pipeline carries one model.Analysis through its steps (normally
// FetchStep then AnalyzeStep) and stops at the first step that fails, so a
// document that could not be fetched is never scanned. BatchProcessor runs
// a fresh pipeline per locator with bounded concurrency and keeps results in
// input order.
package pipeline
