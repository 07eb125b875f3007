package verifications

import "time"

// VerificationCode is a single-use activation credential tied to exactly one
// application. A code is destroyed the moment it is successfully consumed;
// re-verification requires a fresh code issued out-of-band.
type VerificationCode struct {
	Code          string
	ApplicationID string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
