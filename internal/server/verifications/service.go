// Package verifications owns the single-use email verification codes that
// gate credential activation.
package verifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veronewra/openverse/internal/common"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Activate consumes a verification code and promotes its application to
// verified. The two steps are atomic: concurrent activations of the same
// code resolve to exactly one winner, everyone else gets
// common.ErrorInvalidCode. The error deliberately does not distinguish
// never-issued, already-consumed and expired codes.
func (s *Service) Activate(ctx context.Context, code string) (string, error) {

	if code == "" {
		return "", common.ErrorInvalidCode
	}

	applicationID, err := s.repo.Consume(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorInvalidCode) {
			return "", common.ErrorInvalidCode
		}
		return "", fmt.Errorf("error consuming verification code: %w", err)
	}

	return applicationID, nil
}
