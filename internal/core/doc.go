// Package core provides the business logic for reviewing evaluation CSVs.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the reviewctl CLI and tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Dataset: an ordered, immutable snapshot of [Row] records. Every change
//     produces a new Dataset rather than mutating the old one.
//   - Importer: turns an uploaded CSV into a Dataset, all-or-nothing.
//   - Table: the editable table model. It tracks at most one cell being
//     edited through a [Cursor] and commits drafts back into a new Dataset.
//   - Workspace: the hosting application state, one [Session] per reviewer.
//
// # Import
//
// The import flow is:
//
//  1. The declared content type must be text/csv, checked before any byte is read
//  2. The body is wrapped with BOM skipping and UTF-8 sanitization
//  3. The header must contain "Input" and "Expected Output" (exact, case-sensitive)
//  4. Each data row becomes a Row whose ID is its 0-based position
//
// Any failure returns no dataset and leaves the previously loaded one alone.
//
// # Editing
//
// The Table is a two-state machine:
//
//	Idle --click(editable cell)--> Editing(row, field)
//	Editing --commit--> Idle (dataset replaced, onDataUpdate called once)
//	Editing --click(other editable cell)--> Editing(new target), draft discarded
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError]. Each
// category has a code for support reference:
//
//   - IMP001-IMP003: Import errors (not CSV, missing columns, parse failure)
//   - FILE001: File errors (size)
//   - EDIT001-EDIT002: Edit precondition errors
//   - SES001: Session errors
package core
