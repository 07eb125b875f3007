// Package auth mints and parses the bearer access tokens exchanged for
// client credentials. Tokens are HS256 JWTs carrying the client identity and
// a snapshot of its rate tier at issuance.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veronewra/openverse/internal/common"
)

// Claims extends the registered JWT claims with the credential identity and
// the throttling attributes captured when the token was issued.
//
// Verified records whether the application had completed email verification
// at issuance. Unverified clients hold a usable token but are throttled at
// the anonymous tier until they verify.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	RateTier string `json:"rate_tier"`
	Verified bool   `json:"verified"`
}

// GenerateToken signs a token for the given client. The tier string is
// stored as-is; it is validated by the throttle engine on use, not here.
func GenerateToken(clientID, rateTier string, verified bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		ClientID: clientID,
		RateTier: rateTier,
		Verified: verified,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates the signature and expiry of a bearer token and
// returns its claims. Expired tokens yield common.ErrTokenExpired; any other
// defect yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
