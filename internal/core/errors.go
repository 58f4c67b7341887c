package core

import (
	"errors"
	"fmt"
	"strings"
)

// Import errors. All of them are terminal for the attempt: no dataset is
// produced and the previously loaded dataset is left untouched.
var (
	ErrNotCSV         = errors.New("not a csv file")
	ErrMissingColumns = errors.New("missing required columns")
	ErrParseFailure   = errors.New("csv parse failure")
	ErrFileTooLarge   = errors.New("file too large")
)

// Edit precondition errors.
var (
	ErrNotEditable = errors.New("field is not editable")
	ErrNotEditing  = errors.New("no cell is being edited")
	ErrRowNotFound = errors.New("row not found")
)

// ErrInvalidInput marks a malformed request, such as a non-numeric row id.
var ErrInvalidInput = errors.New("invalid input")

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// MissingColumnsError lists the required header cells absent from a CSV.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrMissingColumns) match.
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// ParseError carries the CSV parser's diagnostic for a malformed file.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return "csv parse failure: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrParseFailure) match.
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}
