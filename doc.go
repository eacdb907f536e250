// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the campus ballot API server.

Campus ballot runs the institution-wide student election and any number of
club elections side by side. Each election is a scope with its own voter
codes, candidates, settings and tally; an administrator key unlocks one
scope, and the primary key unlocks all of them.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=ballot.db ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string or SQLite file
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - IDENTITY_TOKEN_SECRET, ALLOWED_EMAIL_DOMAIN: verified sign-in
  - REDIS_URL (--redis), TALLY_CACHE_TTL: tally cache
  - REQUEST_TIMEOUT, MAX_CODES_PER_BATCH
  - LOG_LEVEL (--log-level), LOG_FORMAT (json or console)

# Architecture

  - election: scopes, codes, ballots, tallies, audit log and clubs
  - handlers: HTTP request handlers over election.Service
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Domain, request and response types
  - auth: Voter codes, admin keys and identity tokens
  - db: Connection setup and schema creation
  - cache: Redis tally cache
  - report: XLSX results export
  - logging: zap logger setup
  - cliparse: Configuration parsing

The electionctl command in cmd/electionctl performs the same administrator
operations directly against the database.
*/
package main
