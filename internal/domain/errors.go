package domain

import "errors"

// Sentinel errors for the core operations. Callers classify failures with
// errors.Is; the transport layer maps them to protocol status lines.
var (
	// ErrValidation indicates a missing or empty required field in a request.
	ErrValidation = errors.New("missing or empty required field")

	// ErrUsernameConflict indicates a registration attempt for a username
	// that already exists.
	ErrUsernameConflict = errors.New("username already registered")

	// ErrUserNotFound indicates a lookup for a username that does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrHotelNotFound indicates a lookup for a hotel that does not exist.
	ErrHotelNotFound = errors.New("hotel not found")

	// ErrIncorrectPassword indicates a failed credential check.
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrAlreadyLoggedIn indicates a login attempt for a username that
	// already holds an active session.
	ErrAlreadyLoggedIn = errors.New("user already logged in")
)
