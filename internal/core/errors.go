// Error codes reference.
//
// User-facing errors carry a short code support staff can look up:
//
//	DB001  duplicate key            DB004  connection refused
//	DB005  connection reset         DB006  statement timeout
//	DB007  deadlock
//
//	FILE001 file too large          FILE002 unreadable file
//	FILE003 encoding problem        FILE005 empty file
//	FILE006 too many rows
//
//	JOB001 batch cancelled          JOB002 batch already running
//	JOB003 job not found            JOB004 request cancelled
//	JOB005 request timed out
//
//	ENR001 unknown provider         ENR002 start point missing
//
//	ERR000 anything unmatched; check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage is user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // what happened
	Action  string `json:"action"`  // what to do about it
	Code    string `json:"code"`    // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database errors.
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this identifier already exists",
			Action:  "Check the file for repeated identifiers",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// File errors.
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the file and import it in parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "too many rows",
		msg: UserMessage{
			Message: "The file has more rows than one import accepts",
			Action:  "Split the file and import it in parts",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file contains no data rows",
			Action:  "Check that the file has a header line and at least one contact",
			Code:    "FILE005",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The file could not be read as CSV",
			Action:  "Check the separator and that every line has the same shape",
			Code:    "FILE002",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "The file could not be read as an Excel workbook",
			Action:  "Re-save the file as .xlsx or .csv and try again",
			Code:    "FILE002",
		},
	},

	// Job lifecycle.
	{
		pattern: "another batch is already in progress",
		msg: UserMessage{
			Message: "Another import or enrichment is already running",
			Action:  "Wait for it to finish, then try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "job not found",
		msg: UserMessage{
			Message: "This batch is no longer tracked",
			Action:  "It may have expired; start a new one",
			Code:    "JOB003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The operation was cancelled",
			Action:  "Start again when ready",
			Code:    "JOB004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or check the connection",
			Code:    "JOB005",
		},
	},

	// Enrichment configuration. "start point" must come before the
	// generic unknown-provider pattern to win on its own messages.
	{
		pattern: "start point",
		msg: UserMessage{
			Message: "No start point is configured for route calculations",
			Action:  "Set the start point in settings first",
			Code:    "ENR002",
		},
	},
	{
		pattern: "unknown enrichment kind",
		msg: UserMessage{
			Message: "This enrichment type does not exist",
			Action:  "Use registry, geocode or route",
			Code:    "ENR001",
		},
	},
}

// MapError converts a technical error into a user-facing message. Unmatched
// errors map to ERR000, keeping the technical detail out of the response.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}

// WrapUser annotates an error with its user message code for logs.
func WrapUser(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %w", MapError(err).Code, err)
}
