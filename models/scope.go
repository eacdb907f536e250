// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"strings"
)

const (
	primaryKey = "primary"
	clubPrefix = "club:"
)

var ErrInvalidScope = errors.New("invalid election scope")

// Scope is the isolation boundary every entity is keyed by: the primary
// election or exactly one club election. The zero value is not a scope.
type Scope struct {
	club    string
	primary bool
}

// Primary returns the institution-wide election scope.
func Primary() Scope {
	return Scope{primary: true}
}

// ClubScope returns the scope of one club election.
func ClubScope(clubID string) Scope {
	return Scope{club: clubID}
}

// ParseScope accepts "primary" or "club:<id>".
func ParseScope(s string) (Scope, error) {
	switch {
	case s == primaryKey:
		return Primary(), nil
	case strings.HasPrefix(s, clubPrefix) && len(s) > len(clubPrefix):
		return ClubScope(s[len(clubPrefix):]), nil
	}
	return Scope{}, ErrInvalidScope
}

// Valid reports whether s names a real scope.
func (s Scope) Valid() bool {
	return s.primary != (s.club != "")
}

func (s Scope) IsPrimary() bool { return s.primary }

// ClubID is empty for the primary scope.
func (s Scope) ClubID() string { return s.club }

// Key is the storage and URL form of the scope.
func (s Scope) Key() string {
	if s.primary {
		return primaryKey
	}
	if s.club == "" {
		return ""
	}
	return clubPrefix + s.club
}

func (s Scope) String() string {
	if !s.Valid() {
		return "<invalid scope>"
	}
	return s.Key()
}

func (s Scope) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidScope
	}
	return []byte(s.Key()), nil
}

func (s *Scope) UnmarshalText(b []byte) error {
	parsed, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
