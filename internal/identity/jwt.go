package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity claims carried in a bearer token.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens issued by the identity provider and
// extracts the user profile from them.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a new token verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates a token and returns the profile it carries.
func (v *Verifier) Verify(tokenString string) (Profile, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Profile{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Profile{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Profile{}, errors.New("token missing subject claim")
	}

	return Profile{
		Sub:     claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}

// Issue signs a token for a profile. Used by tests and local development; in
// production tokens come from the identity provider.
func (v *Verifier) Issue(p Profile, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:    p.Name,
		Email:   p.Email,
		Picture: p.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Sub,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "taskboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
