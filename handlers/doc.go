// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the campus ballot API.

# Handler Types

Each handler is a struct over the election service, the config and a logger:

  - ClubHandler: Club lifecycle and the cross-scope audit log
  - AdminHandler: Per-scope settings, voter codes, candidates, overview
  - VotingHandler: Election info, login, sign-in, ballots and likes
  - ResultsHandler: Public results, admin tally and XLSX export

Handlers are created via constructor functions:

	votingHandler := handlers.NewVotingHandler(svc, cfg, logger)

# Scopes

Election routes carry the scope in the path, "primary" or "club:<id>":

	GET /elections/club:3f2a.../results

A malformed scope is a 400; a well-formed scope with no election is a 404.

# Credentials

Administrator routes need the X-Admin-Key header. A scope's own key
administers that scope only; the primary key administers every scope and is
the only key accepted for creating or deleting clubs and reading the audit
log. A wrong key is a 401.

Voter routes need the X-Voter-Code header carrying the voter code issued by
an administrator or returned by verified sign-in.

# Errors

Service errors map onto status codes:

	validation       → 400
	forbidden        → 403 (e.g. ballot closed, results hidden)
	not found        → 404
	conflict         → 409 (e.g. already voted)
	external service → 503
	anything else    → 500

Server-side failures are logged and answered with a generic message.
*/
package handlers
