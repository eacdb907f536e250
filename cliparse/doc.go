// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Precedence

CLI flags, then environment variables, then a .env file in the working
directory (loaded with godotenv, never overriding the real environment),
then defaults.

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type (sqlite or postgres)
	-redis            Redis URL for the tally cache
	-admin-salt       Admin key salt
	-identity-secret  Identity token secret
	-log-level        Log level

# Environment Variables

	PORT                   → -p (default 3318)
	DATABASE_URL           → -d (required)
	DATABASE_TYPE          → -t (default sqlite)
	ADMIN_KEY_SALT         → -admin-salt (required)
	IDENTITY_TOKEN_SECRET  → -identity-secret (sign-in disabled when empty)
	ALLOWED_EMAIL_DOMAIN   institutional domain for verified sign-in
	REDIS_URL              → -redis (no tally cache when empty)
	TALLY_CACHE_TTL        default 5s
	REQUEST_TIMEOUT        storage deadline per operation, default 5s
	MAX_CODES_PER_BATCH    upper bound for one code issuance, default 100
	LOG_LEVEL              → -log-level (default info)
	LOG_FORMAT             json or console (default json)

# Validation

ParseFlags returns an error if DATABASE_URL or ADMIN_KEY_SALT is missing,
or if a numeric or duration value does not parse.
*/
package cliparse
