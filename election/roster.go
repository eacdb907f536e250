// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/models"
)

// Candidate text limits
const (
	maxCandidateNameLen = 120
	maxPositionLen      = 80
	maxManifestoLen     = 5000
)

// Roster manages the candidates, voters and likes of each scope.
type Roster struct {
	db     *sql.DB
	issuer *CodeIssuer
	cache  TallyCache
	plain  *bluemonday.Policy
	rich   *bluemonday.Policy
	now    func() time.Time
	log    *zap.Logger
}

func NewRoster(db *sql.DB, issuer *CodeIssuer, cache TallyCache, now func() time.Time, log *zap.Logger) *Roster {
	return &Roster{
		db:     db,
		issuer: issuer,
		cache:  cache,
		plain:  bluemonday.StrictPolicy(),
		rich:   bluemonday.UGCPolicy(),
		now:    now,
		log:    log,
	}
}

// Candidates

func (r *Roster) AddCandidate(ctx context.Context, scope models.Scope, req models.AddCandidateRequest) (models.Candidate, error) {
	if err := checkScope(scope); err != nil {
		return models.Candidate{}, err
	}

	c := models.Candidate{
		ID:        auth.NewID(),
		Scope:     scope,
		Name:      strings.TrimSpace(r.plain.Sanitize(req.Name)),
		Manifesto: strings.TrimSpace(r.rich.Sanitize(req.Manifesto)),
		ImageRef:  strings.TrimSpace(req.ImageRef),
		Position:  strings.TrimSpace(r.plain.Sanitize(req.Position)),
		CreatedAt: utcNow(r.now),
	}
	switch {
	case c.Name == "":
		return models.Candidate{}, validationf("candidate name is required")
	case c.Position == "":
		return models.Candidate{}, validationf("position is required")
	case c.Manifesto == "":
		return models.Candidate{}, validationf("manifesto is required")
	case len(c.Name) > maxCandidateNameLen:
		return models.Candidate{}, validationf("candidate name exceeds %d characters", maxCandidateNameLen)
	case len(c.Position) > maxPositionLen:
		return models.Candidate{}, validationf("position exceeds %d characters", maxPositionLen)
	case len(c.Manifesto) > maxManifestoLen:
		return models.Candidate{}, validationf("manifesto exceeds %d characters", maxManifestoLen)
	}

	if _, err := getConfig(ctx, r.db, scope); err != nil {
		return models.Candidate{}, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate (id, scope, name, manifesto, image_ref, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, scope.Key(), c.Name, c.Manifesto, c.ImageRef, c.Position, c.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return models.Candidate{}, notFoundf("no election config for scope %s", scope)
	}
	if err != nil {
		return models.Candidate{}, storageError("insert candidate", err)
	}

	r.invalidate(ctx, scope)
	return c, nil
}

// DeleteCandidate refuses to remove a candidate that already holds votes.
func (r *Roster) DeleteCandidate(ctx context.Context, scope models.Scope, id string) (models.Candidate, error) {
	if err := checkScope(scope); err != nil {
		return models.Candidate{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Candidate{}, storageError("begin delete candidate", err)
	}
	defer tx.Rollback()

	c := models.Candidate{Scope: scope}
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, position FROM candidate WHERE id = $1 AND scope = $2
	`, id, scope.Key()).Scan(&c.ID, &c.Name, &c.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, notFoundf("candidate %s not found in scope %s", id, scope)
	}
	if err != nil {
		return models.Candidate{}, storageError("load candidate", err)
	}

	voted, err := hasVotes(ctx, tx, id)
	if err != nil {
		return models.Candidate{}, err
	}
	if voted {
		return models.Candidate{}, conflictf("candidate %q has recorded votes", c.Name)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM candidate_like WHERE candidate_id = $1`, id); err != nil {
		return models.Candidate{}, storageError("delete candidate likes", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM candidate WHERE id = $1 AND scope = $2`, id, scope.Key())
	if db.IsForeignKeyViolation(err) {
		return models.Candidate{}, conflictf("candidate %q has recorded votes", c.Name)
	}
	if err != nil {
		return models.Candidate{}, storageError("delete candidate", err)
	}

	if err := tx.Commit(); err != nil {
		if db.IsForeignKeyViolation(err) {
			return models.Candidate{}, conflictf("candidate %q has recorded votes", c.Name)
		}
		return models.Candidate{}, storageError("commit delete candidate", err)
	}

	r.invalidate(ctx, scope)
	return c, nil
}

// ListCandidates is public: it includes like counts but never vote counts.
func (r *Roster) ListCandidates(ctx context.Context, scope models.Scope) ([]models.Candidate, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	if _, err := getConfig(ctx, r.db, scope); err != nil {
		return nil, err
	}
	return listCandidates(ctx, r.db, scope)
}

// Voters

// LookupVoter authenticates a voter code within one scope.
func (r *Roster) LookupVoter(ctx context.Context, scope models.Scope, code string) (models.Voter, error) {
	if err := checkScope(scope); err != nil {
		return models.Voter{}, err
	}
	if err := auth.ValidateCodeFormat(code); err != nil {
		return models.Voter{}, validationf("malformed voter code")
	}
	return findVoterByCode(ctx, r.db, scope, code)
}

// ListVoters returns voters newest first.
func (r *Roster) ListVoters(ctx context.Context, scope models.Scope) ([]models.Voter, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	if _, err := getConfig(ctx, r.db, scope); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+voterColumns+`
		FROM voter
		WHERE scope = $1
		ORDER BY created_at DESC, id
	`, scope.Key())
	if err != nil {
		return nil, storageError("list voters", err)
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		v, err := scanVoter(scope, rows)
		if err != nil {
			return nil, storageError("scan voter", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list voters", err)
	}
	return voters, nil
}

// DeleteVoter removes a voter who has not voted, along with their likes.
// A cast ballot cannot be withdrawn this way.
func (r *Roster) DeleteVoter(ctx context.Context, scope models.Scope, id string) (models.Voter, error) {
	if err := checkScope(scope); err != nil {
		return models.Voter{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Voter{}, storageError("begin delete voter", err)
	}
	defer tx.Rollback()

	v, err := scanVoter(scope, tx.QueryRowContext(ctx, `
		SELECT `+voterColumns+`
		FROM voter
		WHERE id = $1 AND scope = $2
	`, id, scope.Key()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, notFoundf("voter %s not found in scope %s", id, scope)
	}
	if err != nil {
		return models.Voter{}, storageError("load voter", err)
	}
	if v.HasVoted {
		return models.Voter{}, conflictf("voter has already voted")
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM candidate_like WHERE scope = $1 AND voter_key = $2
	`, scope.Key(), v.Code); err != nil {
		return models.Voter{}, storageError("delete voter likes", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM voter WHERE id = $1 AND scope = $2 AND has_voted = FALSE
	`, id, scope.Key())
	if err != nil {
		return models.Voter{}, storageError("delete voter", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Voter{}, storageError("delete voter", err)
	}
	if n == 0 {
		return models.Voter{}, conflictf("voter has already voted")
	}

	if err := tx.Commit(); err != nil {
		return models.Voter{}, storageError("commit delete voter", err)
	}
	return v, nil
}

// ResolveOrCreateVoter maps a verified external identity to exactly one
// voter per scope. New voters are refused once an administrator has
// closed voting.
func (r *Roster) ResolveOrCreateVoter(ctx context.Context, scope models.Scope, identity string) (models.Voter, bool, error) {
	if err := checkScope(scope); err != nil {
		return models.Voter{}, false, err
	}
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return models.Voter{}, false, validationf("identity is required")
	}

	cfg, err := getConfig(ctx, r.db, scope)
	if err != nil {
		return models.Voter{}, false, err
	}

	v, found, err := findVoterByIdentity(ctx, r.db, scope, identity)
	if err != nil {
		return models.Voter{}, false, err
	}
	if found {
		return v, false, nil
	}

	if PhaseAt(cfg, utcNow(r.now)) == models.PhaseClosedByAdmin {
		return models.Voter{}, false, forbiddenf("voting is closed; new voters cannot register")
	}

	v, err = r.issuer.insertVoter(ctx, r.db, scope, &identity)
	if errors.Is(err, errIdentityTaken) {
		v, found, err = findVoterByIdentity(ctx, r.db, scope, identity)
		if err == nil && !found {
			err = conflictf("identity registration raced; retry")
		}
		return v, false, err
	}
	if err != nil {
		return models.Voter{}, false, err
	}
	r.log.Info("voter registered", zap.String("scope", scope.Key()))
	return v, true, nil
}

// Likes

// Like records one endorsement per voter per candidate. It reports
// whether a new like was stored.
func (r *Roster) Like(ctx context.Context, scope models.Scope, candidateID, voterCode string) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}

	voter, err := findVoterByCode(ctx, r.db, scope, voterCode)
	if err != nil {
		return false, err
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM candidate WHERE id = $1 AND scope = $2)
	`, candidateID, scope.Key()).Scan(&exists)
	if err != nil {
		return false, storageError("load candidate", err)
	}
	if !exists {
		return false, notFoundf("candidate %s not found in scope %s", candidateID, scope)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_like (scope, candidate_id, voter_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, scope.Key(), candidateID, voter.Code, utcNow(r.now))
	if db.IsForeignKeyViolation(err) {
		return false, notFoundf("candidate %s not found in scope %s", candidateID, scope)
	}
	if err != nil {
		return false, storageError("insert like", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("insert like", err)
	}
	return n == 1, nil
}

func (r *Roster) invalidate(ctx context.Context, scope models.Scope) {
	if err := r.cache.Invalidate(ctx, scope); err != nil {
		r.log.Warn("tally cache invalidation failed", zap.String("scope", scope.Key()), zap.Error(err))
	}
}
