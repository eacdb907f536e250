// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election implements the integrity core of the election server.

# Components

  - Registry: per-scope configuration (branding, start date, ballot and
    results flags) and the phase derived from it.
  - CodeIssuer: batches of scope-unique voter codes, all or nothing.
  - BallotCaster: one complete ballot per voter, committed atomically.
  - TallyAggregator: per-position counts, ranks and winners.
  - AuditLog: append-only record of administrator actions.
  - Tenancy: clubs, each owning an isolated scope.
  - Roster: candidates, voters, verified sign-in and likes.

Service wires the components together, bounds every call with a storage
deadline and writes the audit trail. Handlers talk to Service only.

# Scopes

Every row carries a scope key ("primary" or "club:<id>"). Every query
filters on it, so data from one scope can never satisfy a lookup in
another.

# Phases

	start date in the future  → not_started
	ballot flag set           → closed_by_admin
	otherwise                 → open

Results are visible once the election has started and the results flag is
set, independently of the ballot flag.

# Errors

Every returned error wraps one of ErrValidation, ErrForbidden,
ErrConflict, ErrNotFound or ErrExternalService. Use errors.Is.

# Double voting

The voted flag is flipped with a conditional UPDATE inside the same
transaction that inserts the votes. Of any number of concurrent
submissions for one voter, exactly one sees a row affected; the rest roll
back with ErrAlreadyVoted. The (scope, voter_code, position) primary key
on vote backs this up.
*/
package election
