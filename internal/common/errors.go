// Package common defines shared sentinel errors and randomness helpers used
// across the credential server components. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Verification errors. ErrorInvalidCode covers unknown, already-consumed
	// and expired codes alike so probing callers cannot tell them apart.
	ErrorInvalidCode = errors.New("invalid verification code")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Throttling errors.
	ErrUnknownRateTier  = errors.New("unknown rate limit tier")
	ErrLockBusy         = errors.New("lock busy")
	ErrStoreUnavailable = errors.New("counter store unavailable")
)
