package domain

import "errors"

// Error categories. Every concrete error below unwraps to exactly one of them
// so the transport layer can pick a status code with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
)

// Error is a categorised domain error whose Msg is safe to show to clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrMissingFields      = &Error{Kind: ErrValidation, Msg: "All fields are required"}
	ErrUsernameTooShort   = &Error{Kind: ErrValidation, Msg: "Username must be at least 3 characters"}
	ErrPasswordTooShort   = &Error{Kind: ErrValidation, Msg: "Password must be at least 6 characters"}
	ErrMissingCredentials = &Error{Kind: ErrValidation, Msg: "Email and password are required"}

	ErrEmailExists    = &Error{Kind: ErrConflict, Msg: "Email already exists"}
	ErrUsernameExists = &Error{Kind: ErrConflict, Msg: "Username already exists"}
	ErrDuplicateUser  = &Error{Kind: ErrConflict, Msg: "Duplicate entry. Username or email already taken."}

	// Login never says which of the two fields was wrong.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Msg: "Invalid email or password"}
	ErrMissingToken       = &Error{Kind: ErrUnauthenticated, Msg: "No token provided"}
	ErrInvalidToken       = &Error{Kind: ErrUnauthenticated, Msg: "Invalid or expired token"}
	ErrTokenExpired       = &Error{Kind: ErrUnauthenticated, Msg: "Invalid or expired token"}

	ErrUserNotFound = &Error{Kind: ErrNotFound, Msg: "User not found"}
)

// Message returns the client-facing text carried by err, or "" when err is
// not a domain error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return ""
}
