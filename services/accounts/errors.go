package accounts

import (
	"errors"
	"fmt"
)

// Provider-style error codes surfaced to the sign-in page.
const (
	CodeEmailInUse    = "auth/email-already-in-use"
	CodeInvalidEmail  = "auth/invalid-email"
	CodeWeakPassword  = "auth/weak-password"
	CodeUserDisabled  = "auth/user-disabled"
	CodeUserNotFound  = "auth/user-not-found"
	CodeWrongPassword = "auth/wrong-password"
)

// AuthError is returned by SignUp and SignIn.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

func authError(code string, err error) error {
	return &AuthError{Code: code, Err: err}
}

// Code extracts the auth code from err, or "" when err is not an *AuthError.
func Code(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
