package domain

import "errors"

var (
	// ErrUnauthenticated means no valid session could be resolved. It also
	// covers sessions pointing at accounts that no longer exist.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the session is valid but the caller's role does not
	// grant the operation. Kept distinct from ErrUnauthenticated so responses
	// do not leak whether a resource exists versus who may act on it.
	ErrForbidden = errors.New("access forbidden")

	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountExists signals a uniqueness violation on email, phone number
	// or avatar.
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidOTP covers both a wrong code and the absence of an open
	// challenge, without revealing which.
	ErrInvalidOTP = errors.New("invalid or expired code")

	// ErrConcurrentUpdate is returned when an optimistic write lost the race
	// against another mutation of the same account.
	ErrConcurrentUpdate = errors.New("account was modified concurrently")

	ErrRoleNotFound = errors.New("role not found")
)
