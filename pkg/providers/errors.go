package providers

import "fmt"

type ErrorKind int

const (
	ErrAPI ErrorKind = iota
	ErrAuth
	ErrRateLimited
	ErrNetwork
	ErrInvalidRequest
	ErrOther
)

// Error is the classified failure surface of a provider call. It is
// surfaced to the caller as a failed turn and never crashes the gateway.
type Error struct {
	Kind         ErrorKind
	Status       int
	Message      string
	RetryAfterMS int64
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrAPI:
		return fmt.Sprintf("API error: %d - %s", e.Status, e.Message)
	case ErrAuth:
		return fmt.Sprintf("authentication error: %s", e.Message)
	case ErrRateLimited:
		return fmt.Sprintf("rate limited: retry after %dms", e.RetryAfterMS)
	case ErrNetwork:
		return fmt.Sprintf("network error: %s", e.Message)
	case ErrInvalidRequest:
		return fmt.Sprintf("invalid request: %s", e.Message)
	default:
		return fmt.Sprintf("provider error: %s", e.Message)
	}
}

func NewAPIError(status int, message string) *Error {
	return &Error{Kind: ErrAPI, Status: status, Message: message}
}

func NewAuthError(message string) *Error {
	return &Error{Kind: ErrAuth, Message: message}
}

// NewRateLimitedError carries the retry-after hint in milliseconds. The
// core never retries on its own; backoff is a caller concern.
func NewRateLimitedError(retryAfterMS int64) *Error {
	return &Error{Kind: ErrRateLimited, RetryAfterMS: retryAfterMS}
}

func NewNetworkError(message string) *Error {
	return &Error{Kind: ErrNetwork, Message: message}
}

func NewInvalidRequestError(message string) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: message}
}

func NewOtherError(message string) *Error {
	return &Error{Kind: ErrOther, Message: message}
}
