// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/models"
)

// BallotCaster records complete ballots, at most one per voter.
type BallotCaster struct {
	db    *sql.DB
	cache TallyCache
	now   func() time.Time
	log   *zap.Logger
}

func NewBallotCaster(db *sql.DB, cache TallyCache, now func() time.Time, log *zap.Logger) *BallotCaster {
	return &BallotCaster{db: db, cache: cache, now: now, log: log}
}

// CastBallot checks, in order: the phase is open, the voter exists and has
// not voted, the selections cover every position with a matching
// candidate. The voted flag flip and the vote rows commit together.
func (b *BallotCaster) CastBallot(ctx context.Context, scope models.Scope, voterCode string, selections map[string]string) (models.BallotReceipt, error) {
	if err := checkScope(scope); err != nil {
		return models.BallotReceipt{}, err
	}

	cfg, err := getConfig(ctx, b.db, scope)
	if err != nil {
		return models.BallotReceipt{}, err
	}
	now := utcNow(b.now)
	if phase := PhaseAt(cfg, now); phase != models.PhaseOpen {
		return models.BallotReceipt{}, forbiddenf("voting is not open (phase %s)", phase)
	}

	voter, err := findVoterByCode(ctx, b.db, scope, voterCode)
	if err != nil {
		return models.BallotReceipt{}, err
	}
	if voter.HasVoted {
		return models.BallotReceipt{}, ErrAlreadyVoted
	}

	candidates, err := listCandidates(ctx, b.db, scope)
	if err != nil {
		return models.BallotReceipt{}, err
	}
	votes, err := validateSelections(candidates, selections)
	if err != nil {
		return models.BallotReceipt{}, err
	}
	for i := range votes {
		votes[i].VoterCode = voter.Code
	}

	if err := b.commit(ctx, scope, voter.Code, votes, now); err != nil {
		return models.BallotReceipt{}, err
	}

	if err := b.cache.Invalidate(ctx, scope); err != nil {
		b.log.Warn("tally cache invalidation failed", zap.String("scope", scope.Key()), zap.Error(err))
	}
	b.log.Info("ballot cast", zap.String("scope", scope.Key()), zap.Int("positions", len(votes)))

	return models.BallotReceipt{
		Scope:     scope,
		VoterCode: voter.Code,
		Votes:     votes,
		CastAt:    now,
	}, nil
}

func (b *BallotCaster) commit(ctx context.Context, scope models.Scope, code string, votes []models.Vote, castAt time.Time) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin ballot", err)
	}
	defer tx.Rollback()

	// Only one concurrent submission can flip the flag
	res, err := tx.ExecContext(ctx, `
		UPDATE voter SET has_voted = TRUE
		WHERE scope = $1 AND code = $2 AND has_voted = FALSE
	`, scope.Key(), code)
	if err != nil {
		return storageError("mark voter", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("mark voter", err)
	}
	if n == 0 {
		return ErrAlreadyVoted
	}

	for _, v := range votes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vote (scope, voter_code, position, candidate_id, cast_at)
			VALUES ($1, $2, $3, $4, $5)
		`, scope.Key(), code, v.Position, v.CandidateID, castAt)
		switch {
		case err == nil:
		case db.IsUniqueViolation(err):
			return ErrAlreadyVoted
		case db.IsForeignKeyViolation(err):
			return conflictf("candidate %s was removed while the ballot was submitted", v.CandidateID)
		default:
			return storageError("insert vote", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit ballot", err)
	}
	return nil
}

// validateSelections turns a position -> candidate map into votes, sorted
// by position. The scope must have at least one position.
func validateSelections(candidates []models.Candidate, selections map[string]string) ([]models.Vote, error) {
	byID := make(map[string]models.Candidate, len(candidates))
	positions := map[string]bool{}
	for _, c := range candidates {
		byID[c.ID] = c
		positions[c.Position] = true
	}
	if len(positions) == 0 {
		return nil, validationf("no positions are on the ballot")
	}

	var missing []string
	for p := range positions {
		if _, ok := selections[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteBallot, strings.Join(missing, ", "))
	}

	votes := make([]models.Vote, 0, len(selections))
	for position, candidateID := range selections {
		if !positions[position] {
			return nil, validationf("unknown position %q", position)
		}
		c, ok := byID[candidateID]
		if !ok || c.Position != position {
			return nil, fmt.Errorf("%w: %q is not a candidate for %q", ErrCandidateMismatch, candidateID, position)
		}
		votes = append(votes, models.Vote{CandidateID: candidateID, Position: position})
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].Position < votes[j].Position })
	return votes, nil
}

// Ballot lists the scope's candidates grouped by position for a voter who
// may still vote.
func (b *BallotCaster) Ballot(ctx context.Context, scope models.Scope, voterCode string) (models.BallotResponse, error) {
	if err := checkScope(scope); err != nil {
		return models.BallotResponse{}, err
	}

	cfg, err := getConfig(ctx, b.db, scope)
	if err != nil {
		return models.BallotResponse{}, err
	}
	if phase := PhaseAt(cfg, utcNow(b.now)); phase != models.PhaseOpen {
		return models.BallotResponse{}, forbiddenf("voting is not open (phase %s)", phase)
	}

	voter, err := findVoterByCode(ctx, b.db, scope, voterCode)
	if err != nil {
		return models.BallotResponse{}, err
	}
	if voter.HasVoted {
		return models.BallotResponse{}, ErrAlreadyVoted
	}

	candidates, err := listCandidates(ctx, b.db, scope)
	if err != nil {
		return models.BallotResponse{}, err
	}
	return models.BallotResponse{Scope: scope, Positions: groupByPosition(candidates)}, nil
}

// groupByPosition expects candidates already ordered by position.
func groupByPosition(candidates []models.Candidate) []models.BallotPosition {
	positions := []models.BallotPosition{}
	for _, c := range candidates {
		if n := len(positions); n == 0 || positions[n-1].Position != c.Position {
			positions = append(positions, models.BallotPosition{Position: c.Position})
		}
		last := &positions[len(positions)-1]
		last.Candidates = append(last.Candidates, c)
	}
	return positions
}

// hasVotes reports whether any vote in q references the candidate.
func hasVotes(ctx context.Context, q querier, candidateID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote WHERE candidate_id = $1`, candidateID).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, storageError("count votes", err)
	}
	return n > 0, nil
}
