// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the API.

# Scopes

Every entity belongs to exactly one election scope:

	models.Primary()           // the institution-wide election
	models.ClubScope(clubID)   // one club election

The zero Scope is invalid, so a forgotten scope can never fall back to the
primary election. Scopes travel as text ("primary", "club:<id>"):

	scope, err := models.ParseScope(r.PathValue("scope"))

# Domain Types

  - Club: a club election and its display name
  - Voter: issued code, optional external identity, has_voted flag
  - Candidate: name, manifesto, image reference, position, like count
  - Vote: one selection of one ballot
  - ElectionConfig: branding, results/ballot flags, start date
  - Visibility: derived phase plus ballot/results availability
  - AuditLogEntry: append-only administrative record
  - Tally, PositionTally, CandidateTally: aggregated results

# Phases

	PhaseNotStarted    = "not_started"
	PhaseOpen          = "open"
	PhaseClosedByAdmin = "closed_by_admin"

Results visibility is a separate flag, not a phase.

# Request and Response Types

Types for JSON bodies: CreateClubRequest, IssueCodesRequest,
AddCandidateRequest, LoginRequest, SignInRequest, CastBallotRequest,
ConfigPatch; ElectionInfoResponse, BallotResponse, IssueCodesResponse,
LikeResponse, ErrorResponse.
*/
package models
