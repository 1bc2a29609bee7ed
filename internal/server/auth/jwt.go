// Package auth issues and verifies the HS256 access tokens returned by
// signup and profile updates.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the user_type claim consumed
// by downstream authorization checks. The user id travels as the subject.
type Claims struct {
	jwt.RegisteredClaims
	UserType string `json:"user_type"`
}

// GenerateToken signs an HS256 token with subject=userID. The validity
// duration comes from configuration; tokens are long-lived by default.
func GenerateToken(userID, userType string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserType: userType,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies signature and expiry and returns the subject and
// user_type claims. Expired tokens yield common.ErrTokenExpired; anything
// else that fails verification yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (userID string, userType string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.UserType, nil
}
