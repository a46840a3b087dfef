package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Unauthorized: caller not authenticated or not a participant.
	ErrUnauthorized   = fmt.Errorf("caller is not authenticated")
	ErrNotParticipant = fmt.Errorf("caller is not a participant of the conversation")
	ErrBadCredentials = fmt.Errorf("invalid credentials")

	// InvalidOperation: the request itself is malformed or nonsensical.
	ErrSelfConversation   = fmt.Errorf("cannot open a conversation with yourself")
	ErrEmptyContent       = fmt.Errorf("message content is empty")
	ErrUnknownContentKind = fmt.Errorf("unrecognized content kind")
	ErrMalformedID        = fmt.Errorf("malformed identifier")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrUserExists         = fmt.Errorf("user with this address already exists")
	ErrTooFewParticipants = fmt.Errorf("a group conversation needs at least two participants")

	// NotFound: a referenced entity is absent.
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")

	// UpstreamFailure: the persistence gateway failed; the operation is
	// retryable by the caller.
	ErrUpstream = fmt.Errorf("persistence gateway failure")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Upstream wraps a persistence gateway error so callers can match it with
// errors.Is(err, ErrUpstream) while keeping the cause in the message.
func Upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// MapToStatusCode translates the error taxonomy into an HTTP status at the
// request boundary. Declined operations never crash the relay; they come
// back to the caller as a reason code.
func MapToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSelfConversation),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrUnknownContentKind),
		errors.Is(err, ErrMalformedID),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrUserExists),
		errors.Is(err, ErrTooFewParticipants):
		return http.StatusBadRequest
	default:
		// ErrUpstream and anything unknown: retryable server-side failure.
		return http.StatusInternalServerError
	}
}
