// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the campus ballot API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(svc, cfg, logger)

Every route except /health and / is wrapped in middleware.WithLogging.

# Endpoints

Health:

	GET /health

Clubs and audit:

	GET    /clubs          - List clubs
	POST   /clubs          - Create club (primary key, returns the club admin key)
	PATCH  /clubs/{club}   - Rename club (club or primary key)
	DELETE /clubs/{club}   - Delete club, ?force=true once votes exist (primary key)
	GET    /audit-log      - Audit entries, ?scope= and ?limit= (primary key)

Voting ({scope} is "primary" or "club:<id>"):

	GET  /elections/{scope}                              - Branding and visibility
	GET  /elections/{scope}/candidates                   - Candidates with like counts
	POST /elections/{scope}/login                        - Check a voter code
	POST /elections/{scope}/sign-in                      - Verified sign-in
	GET  /elections/{scope}/ballot                       - Ballot (X-Voter-Code)
	POST /elections/{scope}/ballots                      - Cast ballot (X-Voter-Code)
	POST /elections/{scope}/candidates/{candidate}/like  - Like (X-Voter-Code)
	GET  /elections/{scope}/results                      - Results once public

Administration (X-Admin-Key for the scope, or the primary key):

	PATCH  /elections/{scope}/config
	POST   /elections/{scope}/codes
	GET    /elections/{scope}/voters
	DELETE /elections/{scope}/voters/{voter}
	POST   /elections/{scope}/candidates
	DELETE /elections/{scope}/candidates/{candidate}
	GET    /elections/{scope}/overview
	GET    /elections/{scope}/tally
	GET    /elections/{scope}/tally.xlsx
*/
package router
