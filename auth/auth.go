// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// CodeAlphabet is the character set of voter codes (letters and digits).
const CodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the fixed length of voter codes.
const CodeLength = 6

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidCode     = errors.New("invalid voter code format")
)

// NewID returns a random UUID for database records.
func NewID() string {
	return uuid.NewString()
}

// GenerateCode draws a CodeLength voter code uniformly from CodeAlphabet.
// Uniqueness is enforced by the database, not here.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(CodeAlphabet)))
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate voter code: %w", err)
		}
		b[i] = CodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidateCodeFormat checks length and alphabet without touching storage.
func ValidateCodeFormat(code string) error {
	if len(code) != CodeLength {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return ErrInvalidCode
		}
	}
	return nil
}

// GenerateAdminKey creates an HMAC-based admin key for a scope.
// This is deterministic and verifiable
func GenerateAdminKey(scopeKey, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(scopeKey))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the scope
func ValidateAdminKey(scopeKey, adminKey, salt string) error {
	expected := GenerateAdminKey(scopeKey, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}
