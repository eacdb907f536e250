// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidIdentity = errors.New("invalid identity token")
	ErrEmailDomain     = errors.New("email domain not allowed")
)

// Identity is what the verified-identity provider vouches for.
type Identity struct {
	Subject string
	Email   string
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyIdentityToken validates an HS256 token minted by the identity
// bridge and, when allowedDomain is set, the institutional e-mail domain.
func VerifyIdentityToken(token string, secret []byte, allowedDomain string) (Identity, error) {
	if token == "" || len(secret) == 0 {
		return Identity{}, ErrInvalidIdentity
	}

	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidIdentity)
	}

	if allowedDomain != "" {
		domain := strings.TrimPrefix(strings.ToLower(allowedDomain), "@")
		if !strings.HasSuffix(strings.ToLower(claims.Email), "@"+domain) {
			return Identity{}, ErrEmailDomain
		}
	}

	return Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
