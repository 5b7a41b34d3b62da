// Package tokenstest signs access tokens for tests. Production tokens are
// issued by the auth service.
package tokenstest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AbbasPi/Maller-API/pkg/tokens"
)

func NewAccessToken(userID, role string, exp time.Time, secret []byte) (string, error) {
	claims := tokens.AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
