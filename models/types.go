// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Phase is the voter-facing state of a scope.
type Phase string

const (
	PhaseNotStarted    Phase = "not_started"
	PhaseOpen          Phase = "open"
	PhaseClosedByAdmin Phase = "closed_by_admin"
)

// Audit action types
const (
	ActionGenerateCodes   = "GENERATE_CODES"
	ActionUpdateSettings  = "UPDATE_SETTINGS"
	ActionToggleResults   = "TOGGLE_RESULTS"
	ActionToggleBallot    = "TOGGLE_BALLOT"
	ActionSetStartDate    = "SET_START_DATE"
	ActionAddCandidate    = "ADD_CANDIDATE"
	ActionDeleteCandidate = "DELETE_CANDIDATE"
	ActionDeleteVoter     = "DELETE_VOTER"
	ActionCreateClub      = "CREATE_CLUB"
	ActionUpdateClub      = "UPDATE_CLUB"
	ActionDeleteClub      = "DELETE_CLUB"
	ActionDownloadReport  = "DOWNLOAD_REPORT"
)

// Domain types

type Club struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Voter struct {
	ID               string    `json:"id"`
	Scope            Scope     `json:"scope"`
	Code             string    `json:"code"`
	ExternalIdentity *string   `json:"-"` // Never expose in JSON
	HasVoted         bool      `json:"has_voted"`
	CreatedAt        time.Time `json:"created_at"`
}

type Candidate struct {
	ID        string    `json:"id"`
	Scope     Scope     `json:"scope"`
	Name      string    `json:"name"`
	Manifesto string    `json:"manifesto"`
	ImageRef  string    `json:"image_ref"`
	Position  string    `json:"position"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

type Vote struct {
	CandidateID string `json:"candidate_id"`
	VoterCode   string `json:"-"`
	Position    string `json:"position"`
}

type ElectionConfig struct {
	Scope           Scope      `json:"scope"`
	OrgName         string     `json:"org_name"`
	ElectionTitle   string     `json:"election_title"`
	IsResultsPublic bool       `json:"is_results_public"`
	IsBallotHidden  bool       `json:"is_ballot_hidden"` // true: voting closed by an administrator
	StartDate       *time.Time `json:"start_date,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ConfigPatch carries the fields an administrator wants to change.
// Nil fields are left alone; ClearStartDate removes the start date.
type ConfigPatch struct {
	OrgName         *string    `json:"org_name,omitempty"`
	ElectionTitle   *string    `json:"election_title,omitempty"`
	IsResultsPublic *bool      `json:"is_results_public,omitempty"`
	IsBallotHidden  *bool      `json:"is_ballot_hidden,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	ClearStartDate  bool       `json:"clear_start_date,omitempty"`
}

func (p ConfigPatch) Empty() bool {
	return p.OrgName == nil && p.ElectionTitle == nil && p.IsResultsPublic == nil &&
		p.IsBallotHidden == nil && p.StartDate == nil && !p.ClearStartDate
}

// Visibility is what a voter-facing client may do right now.
type Visibility struct {
	Phase          Phase `json:"phase"`
	BallotOpen     bool  `json:"ballot_open"`
	ResultsVisible bool  `json:"results_visible"`
}

type Like struct {
	CandidateID string    `json:"candidate_id"`
	VoterKey    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditLogEntry struct {
	ID         string    `json:"id"`
	Scope      string    `json:"scope"`
	ActionType string    `json:"action_type"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// BallotReceipt is returned after a committed ballot.
type BallotReceipt struct {
	Scope     Scope     `json:"scope"`
	VoterCode string    `json:"voter_code"`
	Votes     []Vote    `json:"votes"`
	CastAt    time.Time `json:"cast_at"`
}

// Tally types

type CandidateTally struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	VoteCount     int    `json:"vote_count"`
	Rank          int    `json:"rank"` // 1-indexed, equal counts share a rank
	Winner        bool   `json:"winner"`
}

type PositionTally struct {
	Position   string           `json:"position"`
	Candidates []CandidateTally `json:"candidates"`
	Winners    []string         `json:"winners"`
	Tied       bool             `json:"tied"`
	TotalVotes int              `json:"total_votes"`
}

type Tally struct {
	Scope        Scope                    `json:"scope"`
	Positions    map[string]PositionTally `json:"positions"`
	TotalBallots int                      `json:"total_ballots"`
	ComputedAt   time.Time                `json:"computed_at"`
}

// Overview is the admin dashboard summary for a scope.
type Overview struct {
	Config           ElectionConfig `json:"config"`
	Visibility       Visibility     `json:"visibility"`
	VoterCount       int            `json:"voter_count"`
	VotedCount       int            `json:"voted_count"`
	ParticipationPct float64        `json:"participation_pct"`
	VotesRecorded    int            `json:"votes_recorded"`
	CandidateCount   int            `json:"candidate_count"`
}

// Request types

type CreateClubRequest struct {
	Name string `json:"name"`
}

type RenameClubRequest struct {
	Name string `json:"name"`
}

type IssueCodesRequest struct {
	Count int `json:"count"`
}

type AddCandidateRequest struct {
	Name      string `json:"name"`
	Manifesto string `json:"manifesto"`
	ImageRef  string `json:"image_ref"`
	Position  string `json:"position"`
}

type LoginRequest struct {
	Code string `json:"code"`
}

type SignInRequest struct {
	IDToken string `json:"id_token"`
}

// position -> candidate_id
type CastBallotRequest struct {
	Selections map[string]string `json:"selections"`
}

// Response types

type CreateClubResponse struct {
	Club     Club   `json:"club"`
	AdminKey string `json:"admin_key"`
}

type IssueCodesResponse struct {
	Voters []Voter `json:"voters"`
}

type ElectionInfoResponse struct {
	Config     ElectionConfig `json:"config"`
	Visibility Visibility     `json:"visibility"`
}

type BallotPosition struct {
	Position   string      `json:"position"`
	Candidates []Candidate `json:"candidates"`
}

type BallotResponse struct {
	Scope     Scope            `json:"scope"`
	Positions []BallotPosition `json:"positions"`
}

type LikeResponse struct {
	Liked   bool   `json:"liked"`
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
