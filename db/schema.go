// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application and the
// primary scope's config row.
// Safe to call multiple times - uses IF NOT EXISTS and ON CONFLICT DO NOTHING.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, primaryConfig); err != nil {
		return fmt.Errorf("failed to create primary config: %w", err)
	}
	return nil
}

// Portable between PostgreSQL and SQLite: no SERIAL, no NOW(), ids are
// generated by the application.
const schema = `
-- Clubs
CREATE TABLE IF NOT EXISTS club (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- One config row per scope ('primary' or 'club:<id>')
CREATE TABLE IF NOT EXISTS election_config (
    scope TEXT PRIMARY KEY,
    org_name TEXT NOT NULL DEFAULT '',
    election_title TEXT NOT NULL DEFAULT '',
    is_results_public BOOLEAN NOT NULL DEFAULT FALSE,
    is_ballot_hidden BOOLEAN NOT NULL DEFAULT FALSE,
    start_date TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL REFERENCES election_config(scope),
    code TEXT NOT NULL,
    external_identity TEXT,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (scope, code),
    UNIQUE (scope, external_identity)
);

CREATE INDEX IF NOT EXISTS idx_voter_scope ON voter(scope);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL REFERENCES election_config(scope),
    name TEXT NOT NULL,
    manifesto TEXT NOT NULL DEFAULT '',
    image_ref TEXT NOT NULL DEFAULT '',
    position TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidate_scope ON candidate(scope, position);

-- Votes: at most one per (scope, voter_code, position)
CREATE TABLE IF NOT EXISTS vote (
    scope TEXT NOT NULL,
    voter_code TEXT NOT NULL,
    position TEXT NOT NULL,
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (scope, voter_code, position)
);

CREATE INDEX IF NOT EXISTS idx_vote_candidate ON vote(candidate_id);

-- Likes
CREATE TABLE IF NOT EXISTS candidate_like (
    scope TEXT NOT NULL,
    candidate_id TEXT NOT NULL REFERENCES candidate(id) ON DELETE CASCADE,
    voter_key TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (candidate_id, voter_key)
);

-- Audit log (append-only)
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    action_type TEXT NOT NULL,
    details TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
`

const primaryConfig = `
INSERT INTO election_config (scope, org_name, election_title, is_results_public, is_ballot_hidden, updated_at)
VALUES ('primary', '', '', FALSE, FALSE, CURRENT_TIMESTAMP)
ON CONFLICT (scope) DO NOTHING
`
