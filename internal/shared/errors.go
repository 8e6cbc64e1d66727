package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request payload failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrEmailTaken indicates an identity already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates login failure. It deliberately covers
	// both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid indicates a token that failed signature or shape checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)
