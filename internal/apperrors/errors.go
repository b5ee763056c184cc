// Package apperrors is the standardized error type shared by the daemon and
// client. Every error that can cross the bus boundary or be reported to a
// user carries one of the Code constants below, so both sides agree on what
// happened without parsing message strings.
package apperrors

import (
	"fmt"
	"time"
)

// Code identifies one of the well-known error kinds carried on the bus wire
// protocol and used for client-side message mapping.
type Code string

const (
	CodeRequestFailed        Code = "RequestFailedError"
	CodeChatNotFound         Code = "ChatNotFoundError"
	CodeChatAlreadyExists    Code = "CHAT_ALREADY_EXISTS"
	CodeHistoryNotAvailable  Code = "HistoryNotAvailable"
	CodeCorruptedHistory     Code = "CorruptedHistoryError"
	CodeMissingHistoryFile   Code = "MissingHistoryFileError"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	CodeNotAuthorizedUser    Code = "NotAuthorizedUser"
	CodeStorageError         Code = "STORAGE_ERROR"
	CodeStorageUnavailable   Code = "STORAGE_UNAVAILABLE"
	CodeValueError           Code = "VALUE_ERROR"
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// AppError is a structured application error carrying a stable Code plus a
// human-readable Message. The literal contents of Message for
// CodeRequestFailed are part of the documented user-visible contract and
// must not be altered.
type AppError struct {
	Code      Code
	Message   string
	Timestamp time.Time
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Timestamp: time.Now()}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap converts a standard error into an AppError with the given code,
// passing already-wrapped AppErrors through unchanged.
func Wrap(err error, code Code) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(code, err.Error())
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code Code) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// As extracts the AppError from err, if any.
func As(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// RequestFailedMessage is the literal, user-visible message mandated for an
// exhausted HTTP submission (spec §4.2).
const RequestFailedMessage = "There was a problem communicating with the server. Please, try again in a few minutes."
