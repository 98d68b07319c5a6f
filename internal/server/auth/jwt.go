package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chestkeeper/chestkeeper/internal/common"
)

// Claims carries the registered claims plus the user id and login of the
// session owner. Login is included so the failure path can recover the
// username from a stale session token without a store round trip.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
	Login  string
}

// GenerateToken mints an HS256 session token for the given user.
func GenerateToken(userID, login string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
		Login:  login,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetLoginFromToken extracts the login from a session token whose signature
// checks out, ignoring expiry. The failure path uses it to attribute an
// attempt to a stale session.
func GetLoginFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	return claims.Login, nil
}

// GetClaimsFromToken parses and validates a session token.
func GetClaimsFromToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
