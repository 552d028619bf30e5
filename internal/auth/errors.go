package auth

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when a valid token lacks the role a setting requires.
var ErrForbidden = errors.New("caller does not have the required role")

// TokenError reports a token that could not be verified.
type TokenError struct {
	Message string
	Cause   error
}

func (e *TokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("token error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("token error: %s", e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Cause
}
