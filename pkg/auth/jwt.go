package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenRevoked is returned for tokens revoked on logout
var ErrTokenRevoked = errors.New("token has been revoked")

const issuer = "storefront-admin"

// Claims identifies an authenticated admin
type Claims struct {
	AdminID  int    `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateJWT issues an HS256 token for an admin user
func GenerateJWT(adminID int, username, secret string, expirationHours int) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Hour * time.Duration(expirationHours))

	claims := &Claims{
		AdminID:  adminID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(adminID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateJWT checks signature, expiry and issuer and returns the claims
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// ValidateJWTWithBlacklist validates the token and rejects revoked ones
func ValidateJWTWithBlacklist(ctx context.Context, tokenString, secret string, blacklist *TokenBlacklist) (*Claims, error) {
	claims, err := ValidateJWT(tokenString, secret)
	if err != nil {
		return nil, err
	}

	if blacklist != nil {
		revoked, err := blacklist.IsBlacklisted(ctx, tokenString)
		if err != nil {
			return nil, fmt.Errorf("failed to check blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
