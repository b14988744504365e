// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the error code to
// support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Classification Errors (CLS001-CLS099)
//
// Errors raised while turning raw CSV headers into normalized columns:
//
//	CLS001 - Malformed header: A header cell is empty or unusable
//	         Action: Check the source file's header row
//	         Patterns: "malformed header"
//
//	CLS002 - Rename collision: Two headers normalize to the same name
//	         Action: The source format changed; review its header row
//	         Patterns: "rename collision"
//
//	CLS003 - Header not found: No row matched the expected columns
//	         Action: Verify the file is the expected source format
//	         Patterns: "header not found"
//
// # Normalization Errors (NRM001-NRM099)
//
// Errors raised while renaming columns and casting values:
//
//	NRM001 - Date parse: A date-like header is not a real calendar date
//	         Action: Review the source file's date columns
//	         Patterns: "date parse failure"
//
//	NRM002 - Value cast: A cell under a date column is not a whole number
//	         Action: Review the source file for corrupted cells
//	         Patterns: "value cast failure"
//
// # Projection Errors (PRJ001-PRJ099)
//
// Errors raised while folding normalized tables into documents:
//
//	PRJ001 - Missing column: A column the projection needs is absent
//	         Action: Verify the file is the expected source format
//	         Patterns: "missing column"
//
//	PRJ002 - Bad status: A row carries an unknown or empty case status
//	         Action: Review the source file's status values
//	         Patterns: "unknown status", "empty status"
//
// # Source File Errors (SRC001-SRC099)
//
// Errors raised while parsing a source CSV:
//
//	SRC001 - Unreadable CSV: The file is empty or not well-formed CSV
//	         Action: Verify the cached source file is intact
//	         Patterns: "parse csv"
//
// # Fetch Errors (FETCH001-FETCH099)
//
// Errors raised while downloading sources:
//
//	FETCH001 - Too large: The source exceeds the configured size cap
//	           Action: Raise COVIDFEED_FETCH_MAX_BYTES if the source grew
//	           Patterns: "response too large"
//
//	FETCH002 - Connection refused: The source host is unreachable
//	           Action: Please try again in a few moments
//	           Patterns: "connection refused"
//
//	FETCH003 - No source: Nothing cached and no URL to download from
//	           Action: Place the file in the input directory or set its
//	           COVIDFEED_SOURCE_<KEY> URL
//	           Patterns: "no cached file"
//
//	FETCH004 - Download failed: The source responded with an error
//	           Action: Please try again later
//	           Patterns: "fetch"
//
// # Run Errors (RUN001-RUN099)
//
// Errors raised by run admission and lifecycle:
//
//	RUN001 - Busy: A build run is already executing
//	         Action: Wait for the active run to finish and try again
//	         Patterns: "already in progress"
//
//	RUN002 - Not found: The run id is unknown or expired
//	         Action: The run may have expired. Start a new one
//	         Patterns: "run not found"
//
//	RUN003 - Unknown dataset: A requested dataset key is not registered
//	         Action: List datasets to see the valid keys
//	         Patterns: "unknown dataset"
//
//	RUN004 - Cancelled: The run was cancelled
//	         Action: Start a new run when ready
//	         Patterns: "context canceled"
//
//	RUN005 - Timed out: The run exceeded its deadline
//	         Action: Check source availability and try again
//	         Patterns: "context deadline exceeded"
//
// # Output Errors (OUT001-OUT099)
//
// Errors raised while writing the JSON tree:
//
//	OUT001 - Unusable name: A location name produced an empty filename
//	         Action: Review the source file's location columns
//	         Patterns: "no usable characters"
//
//	OUT002 - Name collision: Two locations map to the same output file
//	         Action: Review the source file's location columns
//	         Patterns: "collides with"
//
// # Rate Limiting (RATE001-RATE099)
//
// Errors related to request throttling:
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones ("header not found" before "parse csv",
// "response too large" before "fetch").
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated patterns to understand what triggered it
//  3. Review the suggested action to guide the user
//  4. If ERR000, check application logs for the original technical error
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Classification Errors (CLS001-CLS003)
	// These errors occur while normalizing CSV headers.
	// =========================================================================
	{
		pattern: "malformed header",
		msg: UserMessage{
			Message: "A header cell in the source file is empty or unusable",
			Action:  "Check the source file's header row",
			Code:    "CLS001",
		},
	},
	{
		pattern: "rename collision",
		msg: UserMessage{
			Message: "Two source columns normalize to the same name",
			Action:  "The source format changed; review its header row",
			Code:    "CLS002",
		},
	},
	{
		pattern: "header not found",
		msg: UserMessage{
			Message: "The expected header row was not found in the source file",
			Action:  "Verify the file is the expected source format",
			Code:    "CLS003",
		},
	},

	// =========================================================================
	// Normalization Errors (NRM001-NRM002)
	// These errors occur while renaming columns and casting values.
	// =========================================================================
	{
		pattern: "date parse failure",
		msg: UserMessage{
			Message: "A date-like column header is not a real calendar date",
			Action:  "Review the source file's date columns",
			Code:    "NRM001",
		},
	},
	{
		pattern: "value cast failure",
		msg: UserMessage{
			Message: "A cell under a date column is not a whole number",
			Action:  "Review the source file for corrupted cells",
			Code:    "NRM002",
		},
	},

	// =========================================================================
	// Projection Errors (PRJ001-PRJ002)
	// These errors occur while folding tables into documents.
	// =========================================================================
	{
		pattern: "missing column",
		msg: UserMessage{
			Message: "A column the projection needs is missing from the source",
			Action:  "Verify the file is the expected source format",
			Code:    "PRJ001",
		},
	},
	{
		pattern: "unknown status",
		msg: UserMessage{
			Message: "A row carries an unknown case status",
			Action:  "Review the source file's status values",
			Code:    "PRJ002",
		},
	},
	{
		pattern: "empty status",
		msg: UserMessage{
			Message: "A row carries no case status",
			Action:  "Review the source file's status values",
			Code:    "PRJ002",
		},
	},

	// =========================================================================
	// Source File Errors (SRC001)
	// These errors occur while parsing a source CSV.
	// =========================================================================
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The source file is empty or not well-formed CSV",
			Action:  "Verify the cached source file is intact",
			Code:    "SRC001",
		},
	},

	// =========================================================================
	// Fetch Errors (FETCH001-FETCH004)
	// These errors occur while downloading sources.
	// =========================================================================
	{
		pattern: "response too large",
		msg: UserMessage{
			Message: "The source file exceeds the configured size cap",
			Action:  "Raise COVIDFEED_FETCH_MAX_BYTES if the source grew",
			Code:    "FETCH001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The source host is unreachable",
			Action:  "Please try again in a few moments",
			Code:    "FETCH002",
		},
	},
	{
		pattern: "no cached file",
		msg: UserMessage{
			Message: "Nothing cached for this dataset and no URL to download from",
			Action:  "Place the file in the input directory or set its COVIDFEED_SOURCE_<KEY> URL",
			Code:    "FETCH003",
		},
	},
	{
		pattern: "fetch",
		msg: UserMessage{
			Message: "Downloading the source failed",
			Action:  "Please try again later",
			Code:    "FETCH004",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN005)
	// These errors occur during run admission and lifecycle.
	// =========================================================================
	{
		pattern: "already in progress",
		msg: UserMessage{
			Message: "A build run is already executing",
			Action:  "Wait for the active run to finish and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Run not found",
			Action:  "The run may have expired. Start a new one",
			Code:    "RUN002",
		},
	},
	{
		pattern: "unknown dataset",
		msg: UserMessage{
			Message: "A requested dataset is not registered",
			Action:  "List datasets to see the valid keys",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run timed out",
			Action:  "Check source availability and try again",
			Code:    "RUN005",
		},
	},

	// =========================================================================
	// Output Errors (OUT001-OUT002)
	// These errors occur while writing the JSON tree.
	// =========================================================================
	{
		pattern: "no usable characters",
		msg: UserMessage{
			Message: "A location name produced an empty output filename",
			Action:  "Review the source file's location columns",
			Code:    "OUT001",
		},
	},
	{
		pattern: "collides with",
		msg: UserMessage{
			Message: "Two locations map to the same output file",
			Action:  "Review the source file's location columns",
			Code:    "OUT002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// These errors occur when request limits are exceeded.
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("rename collision: columns collide")
//	msg := MapError(err)
//	// msg.Code == "CLS002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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
//
// Example output: "A build run is already executing (Code: RUN001). Wait for the active run to finish and try again"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
