// Package input implements the client-side precedence rules for combining
// the four possible sources of a question into the single message string
// sent to the daemon.
package input

import (
	"strings"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
)

// Sources holds the raw, already-resolved inputs gathered by the client:
// the positional query, piped stdin, an attachment already read to string,
// and the most recent terminal output (already resolved via the terminal
// package).
type Sources struct {
	Query          string
	Stdin          string
	Attachment     string
	TerminalOutput string
}

// Result is the composed message. Warning is set when stdin is ignored
// because a query and an attachment are present (rules 1 and 4), so the
// client can print it without Compose itself doing any I/O; other dropped
// sources produce no warning.
type Result struct {
	Message string
	Warning string
}

// Compose applies the eight-rule precedence table: the caller must not
// reorder these cases, since rule 1 below (all four sources present)
// deliberately drops TerminalOutput without mentioning it in the warning,
// matching the upstream behavior this client pins rather than "fixes".
func Compose(s Sources) (Result, error) {
	switch {
	case s.Query != "" && s.Stdin != "" && s.Attachment != "" && s.TerminalOutput != "":
		return Result{
			Message: join(s.Query, s.Attachment),
			Warning: "stdin was provided but ignored because a query, attachment, and terminal output were all present",
		}, nil

	case s.Query != "" && s.Attachment != "" && s.TerminalOutput != "":
		return Result{Message: join(s.Query, s.Attachment, s.TerminalOutput)}, nil

	case s.Query != "" && s.TerminalOutput != "":
		return Result{Message: join(s.Query, s.TerminalOutput)}, nil

	case s.Query != "" && s.Attachment != "":
		result := Result{Message: join(s.Query, s.Attachment)}
		if s.Stdin != "" {
			result.Warning = "stdin was provided but ignored because a query and an attachment were present"
		}
		return result, nil

	case s.Stdin != "" && s.Attachment != "":
		return Result{Message: join(s.Stdin, s.Attachment)}, nil

	case s.Stdin != "" && s.Query != "":
		return Result{Message: join(s.Query, s.Stdin)}, nil

	default:
		for _, candidate := range []string{s.Query, s.Stdin, s.Attachment, s.TerminalOutput} {
			if candidate != "" {
				return Result{Message: candidate}, nil
			}
		}
		return Result{}, apperrors.New(apperrors.CodeValueError,
			"No input provided. Please provide input via file, stdin, or direct query.")
	}
}

func join(parts ...string) string {
	return strings.Join(parts, " ")
}
