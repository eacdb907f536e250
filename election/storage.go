// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/danielhkuo/campus-ballot/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx so lookups can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func checkScope(scope models.Scope) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	return nil
}

func getConfig(ctx context.Context, q querier, scope models.Scope) (models.ElectionConfig, error) {
	cfg := models.ElectionConfig{Scope: scope}
	var startDate sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT org_name, election_title, is_results_public, is_ballot_hidden, start_date, updated_at
		FROM election_config
		WHERE scope = $1
	`, scope.Key()).Scan(
		&cfg.OrgName, &cfg.ElectionTitle, &cfg.IsResultsPublic,
		&cfg.IsBallotHidden, &startDate, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ElectionConfig{}, notFoundf("no election config for scope %s", scope)
	}
	if err != nil {
		return models.ElectionConfig{}, storageError("load election config", err)
	}

	if startDate.Valid {
		t := startDate.Time.UTC()
		cfg.StartDate = &t
	}
	return cfg, nil
}

const voterColumns = `id, code, external_identity, has_voted, created_at`

func scanVoter(scope models.Scope, row interface{ Scan(...any) error }) (models.Voter, error) {
	v := models.Voter{Scope: scope}
	var identity sql.NullString
	if err := row.Scan(&v.ID, &v.Code, &identity, &v.HasVoted, &v.CreatedAt); err != nil {
		return models.Voter{}, err
	}
	if identity.Valid {
		v.ExternalIdentity = &identity.String
	}
	return v, nil
}

func findVoterByCode(ctx context.Context, q querier, scope models.Scope, code string) (models.Voter, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+voterColumns+`
		FROM voter
		WHERE scope = $1 AND code = $2
	`, scope.Key(), code)

	v, err := scanVoter(scope, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, notFoundf("voter code not registered in scope %s", scope)
	}
	if err != nil {
		return models.Voter{}, storageError("load voter", err)
	}
	return v, nil
}

func findVoterByIdentity(ctx context.Context, q querier, scope models.Scope, identity string) (models.Voter, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+voterColumns+`
		FROM voter
		WHERE scope = $1 AND external_identity = $2
	`, scope.Key(), identity)

	v, err := scanVoter(scope, row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, false, nil
	}
	if err != nil {
		return models.Voter{}, false, storageError("load voter", err)
	}
	return v, true, nil
}

// listCandidates returns the scope's candidates ordered by position then
// name, with like counts.
func listCandidates(ctx context.Context, q querier, scope models.Scope) ([]models.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.name, c.manifesto, c.image_ref, c.position, c.created_at, COUNT(l.voter_key)
		FROM candidate c
		LEFT JOIN candidate_like l ON l.candidate_id = c.id
		WHERE c.scope = $1
		GROUP BY c.id, c.name, c.manifesto, c.image_ref, c.position, c.created_at
		ORDER BY c.position, c.name, c.id
	`, scope.Key())
	if err != nil {
		return nil, storageError("list candidates", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		c := models.Candidate{Scope: scope}
		if err := rows.Scan(&c.ID, &c.Name, &c.Manifesto, &c.ImageRef, &c.Position, &c.CreatedAt, &c.LikeCount); err != nil {
			return nil, storageError("scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list candidates", err)
	}
	return candidates, nil
}

func utcNow(now func() time.Time) time.Time {
	return now().UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
