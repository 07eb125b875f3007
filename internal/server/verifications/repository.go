package verifications

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, code *VerificationCode) error

	// Consume atomically deletes the code and marks the associated
	// application verified, returning the application id. A code that is
	// unknown, already consumed or expired as of now yields
	// common.ErrorInvalidCode. Under concurrent attempts with the same code
	// exactly one call succeeds.
	Consume(ctx context.Context, code string, now time.Time) (string, error)
}
