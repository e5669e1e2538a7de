// internal/types/errors.go
package types

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrMoodLogNotFound    = errors.New("mood log not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)
