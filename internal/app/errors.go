package app

import (
	"errors"

	"github.com/antlu/community-bot/internal/discord"
)

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = discord.ErrNotFound
	ErrInvalidInput       = errors.New("invalid input")
	ErrArchiveUnavailable = errors.New("archive unavailable")
)

// userError is an error whose message is safe to show the member who
// triggered it.
type userError struct {
	kind error
	msg  string
}

func (e *userError) Error() string { return e.msg }

func (e *userError) Unwrap() error { return e.kind }

func notFound(msg string) error { return &userError{kind: ErrNotFound, msg: msg} }

func invalidInput(msg string) error { return &userError{kind: ErrInvalidInput, msg: msg} }

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrArchiveUnavailable):
		return "archive_unavailable"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "external"
	}
}

// userMessage converts an error into the ephemeral reply shown to the
// member.
func userMessage(err error) string {
	kind := errorKind(err)
	if kind == "archive_unavailable" {
		return "The ticket could not be archived, so it was kept open. Please try again later."
	}

	var ue *userError
	if errors.As(err, &ue) {
		return ue.msg
	}

	switch kind {
	case "permission_denied":
		return "You do not have permission to do this."
	case "not_found":
		return "That no longer exists."
	default:
		return "Something went wrong. Please try again later."
	}
}
