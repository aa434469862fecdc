package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vyayamzone/vyayam-api/internal/config"
)

const tokenIssuer = "vyayam-api"

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access tokens. The role is deliberately absent: it is
// resolved from profile rows on every request.
type Claims struct {
	IdentityID string `json:"uid"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived HS256 token for an identity.
func GenerateAccessToken(cfg *config.Config, identityID, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(cfg.AccessTokenTTL)
	claims := Claims{
		IdentityID: identityID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func ParseAndValidateToken(cfg *config.Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IdentityID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
