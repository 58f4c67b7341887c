package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When reviewers hit an error they can quote the code to support staff.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Not a CSV: The selected file is not declared as text/csv
//	         Action: Export the sheet as CSV and upload that file
//	         Matches: ErrNotCSV
//
//	IMP002 - Missing columns: The header lacks "Input" or "Expected Output"
//	         Action: Add both columns; names are case-sensitive
//	         Matches: ErrMissingColumns
//
//	IMP003 - Parse failure: The CSV body is malformed
//	         Message carries the parser diagnostic
//	         Matches: ErrParseFailure
//
//	IMP004 - Busy: Every import slot stayed taken for the wait period
//	         Matches: ErrTooManyImports
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the configured upload limit
//	          Matches: ErrFileTooLarge, "request body too large"
//
// # Edit Errors (EDIT001-EDIT099)
//
//	EDIT001 - Not editing: Draft or commit sent while no cell is in edit mode
//	          Matches: ErrNotEditing
//
//	EDIT002 - Not editable: Only Notes and Better Answer can be edited
//	          Matches: ErrNotEditable
//
//	EDIT003 - Row not found: The edit names a row id the dataset lacks
//	          Matches: ErrRowNotFound
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The review session expired
//	         Matches: ErrSessionNotFound
//
// # Request Errors
//
//	REQ001 - Invalid request            Matches: ErrInvalidInput
//	UPL004 - Request cancelled          Patterns: "context canceled"
//	UPL005 - Request timeout            Patterns: "context deadline exceeded"
//	RATE001 - Rate limited              Patterns: "rate limit"
//	ERR000 - Unknown error (fallback)
//
// Sentinel matches (errors.Is) are checked before string patterns. Patterns
// are matched case-insensitively with strings.Contains; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessages are matched with errors.Is, in order.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{
		target: ErrNotCSV,
		msg: UserMessage{
			Message: "Please upload a CSV file",
			Action:  "Export the sheet as CSV and upload that file",
			Code:    "IMP001",
		},
	},
	{
		target: ErrMissingColumns,
		msg: UserMessage{
			Message: `CSV file must contain "Input" and "Expected Output" columns`,
			Action:  "Add both columns to the header row; names are case-sensitive",
			Code:    "IMP002",
		},
	},
	{
		target: ErrTooManyImports,
		msg: UserMessage{
			Message: "Too many imports in progress",
			Action:  "Please wait a moment and upload again",
			Code:    "IMP004",
		},
	},
	{
		target: ErrFileTooLarge,
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		target: ErrNotEditing,
		msg: UserMessage{
			Message: "No cell is being edited",
			Action:  "Click a Notes or Better Answer cell first",
			Code:    "EDIT001",
		},
	},
	{
		target: ErrNotEditable,
		msg: UserMessage{
			Message: "This column cannot be edited",
			Action:  "Only Notes and Better Answer are editable",
			Code:    "EDIT002",
		},
	},
	{
		target: ErrRowNotFound,
		msg: UserMessage{
			Message: "Row not found",
			Action:  "Reload the page; the dataset may have been replaced",
			Code:    "EDIT003",
		},
	},
	{
		target: ErrInvalidInput,
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request parameters and try again",
			Code:    "REQ001",
		},
	},
	{
		target: ErrSessionNotFound,
		msg: UserMessage{
			Message: "Review session not found",
			Action:  "The session may have expired. Please upload the file again",
			Code:    "SES001",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return UserMessage{
			Message: fmt.Sprintf("Error parsing CSV file: %s", pe.Message),
			Action:  "Check quoting and that every row has as many cells as the header",
			Code:    "IMP003",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
