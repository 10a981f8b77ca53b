package errors

import "fmt"

var (
	ErrTokenRequired      = fmt.Errorf("authentication token is required")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrEmptyMessage     = fmt.Errorf("message carries neither text nor media")
	ErrSelfConversation = fmt.Errorf("sender and receiver are the same identity")
	ErrUserNotFound     = fmt.Errorf("user not found")

	ErrMalformedFrame = fmt.Errorf("malformed frame payload")
	ErrUnknownEvent   = fmt.Errorf("unknown event")

	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
