package core

// error_messages.go defines user-friendly error messages with codes for
// support reference. When users encounter errors, they can quote the error
// code for faster diagnosis.
//
// Format errors (FMT001-FMT099): the uploaded stream is not a parseable
// workbook. Column errors (COL001-COL099): the selected key column is
// missing. Serialization errors (SER001-SER099): a group could not be
// rendered. File errors (FILE001-FILE099): upload handling. Run errors
// (RUN001-RUN099): run lifecycle and throttling. ERR000 is the fallback.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// matching pattern wins, so more specific patterns come before general
// ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable
// guidance. The surrounding UI displays Message and Action verbatim.
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

var errorPatterns = []errorPattern{
	// Format errors
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The first sheet has no header row",
			Action:  "Make sure row 1 of the sheet contains the column names",
			Code:    "FMT002",
		},
	},
	{
		pattern: "invalid spreadsheet format",
		msg: UserMessage{
			Message: "The file could not be read as an Excel workbook",
			Action:  "Check that the file is a valid .xlsx file and upload it again",
			Code:    "FMT001",
		},
	},

	// Key column errors
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "The selected key column is not in the file",
			Action:  "Check the column name against the file's header row",
			Code:    "COL001",
		},
	},

	// Serialization errors
	{
		pattern: "serialize group",
		msg: UserMessage{
			Message: "One of the groups could not be written to Excel format",
			Action:  "Check the file format and column name, then try again",
			Code:    "SER001",
		},
	},

	// File handling errors
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx file to upload",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum upload size",
			Action:  "Split the workbook into smaller files and upload them separately",
			Code:    "FILE002",
		},
	},

	// Run lifecycle errors
	{
		pattern: "too many concurrent splits",
		msg: UserMessage{
			Message: "Too many splits are running right now",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "The split run was not found",
			Action:  "The run may have expired. Please start a new split",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The split timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN004",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the file format and column name, then try again",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message with
// actionable guidance. The original error text is matched against known
// patterns; unmatched errors get the generic ERR000 message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// String renders the message as a single line for plain-text surfaces
// such as the CLI.
func (m UserMessage) String() string {
	if m.Action == "" {
		return fmt.Sprintf("%s (%s)", m.Message, m.Code)
	}
	return fmt.Sprintf("%s. %s (%s)", m.Message, m.Action, m.Code)
}
