// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections, schema creation, and driver error
classification.

# Connections

Open selects the driver by DATABASE_TYPE:

	conn, err := db.Open(ctx, db.DriverPostgres, "postgres://...")
	conn, err := db.Open(ctx, db.DriverSQLite, "file:dev.db")

SQLite connections get foreign keys and a busy timeout, and the pool is
limited to one connection.

# Schema Creation

CreateSchema initializes all required tables and the primary scope's
config row:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times.

# Tables

  - club: club elections
  - election_config: one row per scope ('primary' or 'club:<id>')
  - voter: issued codes, UNIQUE (scope, code), UNIQUE (scope, external_identity)
  - candidate: per-scope candidates grouped by position
  - vote: PRIMARY KEY (scope, voter_code, position)
  - candidate_like: PRIMARY KEY (candidate_id, voter_key)
  - audit_log: append-only admin actions

# Relationships

	election_config 1──* voter
	election_config 1──* candidate
	candidate 1──* vote
	candidate 1──* candidate_like (ON DELETE CASCADE)

Votes are never cascaded: deleting a candidate or voter that has votes is
refused by the election package.

# Constraint Errors

	db.IsUniqueViolation(err)
	db.IsForeignKeyViolation(err)

Both understand *pq.Error and the modernc *sqlite.Error.
*/
package db
