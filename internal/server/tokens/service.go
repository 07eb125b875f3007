// Package tokens implements the client-credentials exchange: a verified
// client id + secret pair is traded for a short-lived bearer token.
package tokens

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/auth"
	"github.com/veronewra/openverse/internal/server/config"
)

// IssuedToken is the bearer token payload returned to the client.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}

type Service struct {
	repo                        applications.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(repo applications.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                        repo,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// dummyHash is compared against when the client id is unknown, so that the
// cost of an Issue call does not reveal whether the id exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Issue validates the client secret against the stored bcrypt hash and mints
// an access token. The rejection is uniform: a wrong id and a wrong secret
// are indistinguishable to the caller.
//
// An unverified application still receives a token, but the embedded
// verified flag keeps it on anonymous-equivalent throttling until the email
// verification completes.
func (s *Service) Issue(ctx context.Context, clientID, clientSecret string) (*IssuedToken, error) {

	app, err := s.repo.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Equalize timing with the found path.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(clientSecret))
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(app.SecretHash), []byte(clientSecret)) != nil {
		return nil, common.ErrorUnauthorized
	}

	accessToken, err := auth.GenerateToken(app.ClientID, app.RateTier, app.Verified, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &IssuedToken{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}
