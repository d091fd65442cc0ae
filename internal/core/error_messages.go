package core

// error_messages.go maps internal errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found (expired or never existed)
//	SES002 - No dataset loaded in the session
//	SES003 - Too many active sessions
//
// # Ingestion and File Errors (ING, FILE)
//
//	ING001  - File could not be ingested (generic ingestion failure)
//	FILE001 - File too large
//	FILE002 - Malformed delimited text (row wider than the header)
//	FILE003 - Encoding error (neither UTF-8 nor Shift_JIS)
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Operation Errors (VAL, CMP)
//
//	VAL001 - Unknown operation
//	VAL002 - Invalid operation request (column, method, parameter)
//	VAL003 - Column not found
//	CMP001 - Operation cannot be computed on this data
//
// # Upload Errors (UPL)
//
//	UPL002 - Too many ingestions in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Database export is not configured
//	DB002 - Table already exists with incompatible columns
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Rate Limiting
//
//	RATE001 - Too many requests
//
// # Default
//
//	ERR000 - Unknown error; check the server logs for the technical error
//
// Sentinel errors are matched with errors.Is first, then typed errors with
// errors.As, then the case-insensitive substring patterns in order.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Detail is the error text itself, set only for errors whose text is
	// written for users (validation, computation and ingestion problems).
	Detail string `json:"detail,omitempty"`
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrSessionNotFound, UserMessage{
		Message: "Session not found",
		Action:  "The session may have expired. Upload the file again",
		Code:    "SES001",
	}},
	{session.ErrEmpty, UserMessage{
		Message: "No dataset is loaded",
		Action:  "Upload a file first",
		Code:    "SES002",
	}},
	{ErrTooManySessions, UserMessage{
		Message: "Too many active sessions",
		Action:  "Close an unused session or try again later",
		Code:    "SES003",
	}},
	{ingest.ErrTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ingest.ErrRaggedRecord, UserMessage{
		Message: "File is not valid delimited text",
		Action:  "Check the delimiter and that no row has more fields than the header",
		Code:    "FILE002",
	}},
	{ingest.ErrUndecodable, UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save the file as UTF-8 or Shift_JIS",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{ingest.ErrNoData, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a file with at least a header row",
		Code:    "FILE005",
	}},
	{ops.ErrUnknownOp, UserMessage{
		Message: "Unknown operation",
		Action:  "List the available operations at /api/operations",
		Code:    "VAL001",
	}},
	{dataset.ErrColumnNotFound, UserMessage{
		Message: "Column not found",
		Action:  "Check the column name against the current preview",
		Code:    "VAL003",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}},
	{ErrExportDisabled, UserMessage{
		Message: "Database export is not configured",
		Action:  "Set DATABASE_URL to enable table export",
		Code:    "DB001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that only surface as text, mostly from the
// database driver. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Table already exists with different columns",
			Action:  "Export with replace enabled or choose another table name",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
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

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Unrecognized errors
// map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	var ve *ops.ValidationError
	if errors.As(err, &ve) {
		return UserMessage{
			Message: "The operation request is invalid",
			Action:  "Check the selected columns and parameters",
			Code:    "VAL002",
			Detail:  ve.Error(),
		}
	}
	var ce *ops.ComputationError
	if errors.As(err, &ce) {
		return UserMessage{
			Message: "The operation cannot be computed on this data",
			Action:  "Clean the offending values first",
			Code:    "CMP001",
			Detail:  ce.Error(),
		}
	}
	var ie *ingest.Error
	if errors.As(err, &ie) {
		return UserMessage{
			Message: "The file could not be read",
			Action:  "Check the delimiter and header settings",
			Code:    "ING001",
			Detail:  ie.Error(),
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
	if msg.Detail != "" {
		return fmt.Sprintf("%s (Code: %s): %s. %s", msg.Message, msg.Code, msg.Detail, msg.Action)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
