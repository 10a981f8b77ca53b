package errors

import "errors"

// Kind is the wire-level error category pushed to a session
// through the "error" event.
type Kind string

const (
	KindAuthentication     Kind = "authentication"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not-found"
	KindStorageUnavailable Kind = "storage-unavailable"
	KindInternal           Kind = "internal"
)

// MapToKind classifies a domain error into its wire category.
// Storage failures are the only retryable kind: the caller kept no
// partial state and may simply replay the operation.
func MapToKind(err error) Kind {
	switch {
	case errors.Is(err, ErrTokenRequired),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidCredentials):
		return KindAuthentication
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrSelfConversation),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrMalformedFrame),
		errors.Is(err, ErrUnknownEvent):
		return KindValidation
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may replay the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
