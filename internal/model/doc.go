// Package model defines the records shared by the pipeline, the history
// database, and the report writers.
//
// An Analysis carries one locator from fetch to output. Its Status decides
// which of the three user-facing lines Output returns.
package model
