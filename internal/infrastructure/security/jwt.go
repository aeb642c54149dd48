package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for malformed, expired, mis-signed or mismatched tokens.
var ErrInvalidToken = errors.New("invalid page view token")

// PageViewClaims binds a beacon token to one page view.
type PageViewClaims struct {
	PageViewID string `json:"pvid"`
	jwt.RegisteredClaims
}

// GeneratePageViewToken signs a token the beacon presents on every request.
func GeneratePageViewToken(pageViewID, secret string, now time.Time, ttl time.Duration) (string, error) {
	claims := PageViewClaims{
		PageViewID: pageViewID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pageViewID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign page view token: %w", err)
	}
	return signed, nil
}

// ValidatePageViewToken checks the signature, that the token belongs to
// pageViewID and that it has not expired at now.
func ValidatePageViewToken(tokenString, pageViewID, secret string, now time.Time) error {
	claims := &PageViewClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(now, true) || claims.PageViewID != pageViewID {
		return ErrInvalidToken
	}
	return nil
}
