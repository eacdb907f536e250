// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and code generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 over the scope key:

	adminKey := auth.GenerateAdminKey(scope.Key(), salt)
	err := auth.ValidateAdminKey(scope.Key(), adminKey, salt)

The primary scope's key administers every scope; a club's key only its own
club. Keys are deterministic, so nothing is stored.

# Voter Codes

Voter codes are 6 characters drawn uniformly from letters and digits with
crypto/rand:

	code, err := auth.GenerateCode()

Codes are only candidates: the database's UNIQUE (scope, code) constraint
decides whether one may be used.

# Verified Identity

Sign-in through the institution's identity provider arrives as an HS256
token carrying sub and email claims:

	id, err := auth.VerifyIdentityToken(token, secret, "example.ac.mw")

Tokens must be unexpired; with a domain configured the e-mail must belong
to it (ErrEmailDomain).

# ID Generation

	id := auth.NewID() // random UUID
*/
package auth
