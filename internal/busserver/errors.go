package busserver

import "github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"

// codeOf extracts the wire-facing error code from an apperrors.AppError,
// falling back to a generic internal code for anything else so a handler
// bug never leaks a raw Go error string as the authoritative code.
func codeOf(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return string(appErr.Code)
	}
	return string(apperrors.CodeInternal)
}
