// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/models"
)

// CodeIssuer mints voter codes that are unique within their scope.
type CodeIssuer struct {
	db       *sql.DB
	maxBatch int
	attempts int
	now      func() time.Time
	generate func() (string, error)
}

func NewCodeIssuer(db *sql.DB, maxBatch, attempts int, now func() time.Time) *CodeIssuer {
	return &CodeIssuer{
		db:       db,
		maxBatch: maxBatch,
		attempts: attempts,
		now:      now,
		generate: auth.GenerateCode,
	}
}

// IssueCodes creates count fresh voters in one transaction. Either every
// code is stored or none is.
func (c *CodeIssuer) IssueCodes(ctx context.Context, scope models.Scope, count int) ([]models.Voter, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	if count < 1 || count > c.maxBatch {
		return nil, validationf("count must be between 1 and %d", c.maxBatch)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin code issuance", err)
	}
	defer tx.Rollback()

	if _, err := getConfig(ctx, tx, scope); err != nil {
		return nil, err
	}

	voters := make([]models.Voter, 0, count)
	for i := 0; i < count; i++ {
		v, err := c.insertVoter(ctx, tx, scope, nil)
		if err != nil {
			return nil, err
		}
		voters = append(voters, v)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit code issuance", err)
	}
	return voters, nil
}

// insertVoter stores a voter under a freshly generated code, retrying on
// code collisions. With an identity set, a conflict on that identity
// returns errIdentityTaken instead of retrying.
func (c *CodeIssuer) insertVoter(ctx context.Context, q querier, scope models.Scope, identity *string) (models.Voter, error) {
	for attempt := 0; attempt < c.attempts; attempt++ {
		code, err := c.generate()
		if err != nil {
			return models.Voter{}, fmt.Errorf("%w: generate code: %w", ErrExternalService, err)
		}

		v := models.Voter{
			ID:               auth.NewID(),
			Scope:            scope,
			Code:             code,
			ExternalIdentity: identity,
			CreatedAt:        utcNow(c.now),
		}

		res, err := q.ExecContext(ctx, `
			INSERT INTO voter (id, scope, code, external_identity, has_voted, created_at)
			VALUES ($1, $2, $3, $4, FALSE, $5)
			ON CONFLICT DO NOTHING
		`, v.ID, scope.Key(), v.Code, nullString(identity), v.CreatedAt)
		if err != nil {
			return models.Voter{}, storageError("insert voter", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return models.Voter{}, storageError("insert voter", err)
		}
		if n == 1 {
			return v, nil
		}

		if identity != nil {
			var exists bool
			err := q.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM voter WHERE scope = $1 AND external_identity = $2)
			`, scope.Key(), *identity).Scan(&exists)
			if err != nil {
				return models.Voter{}, storageError("check identity", err)
			}
			if exists {
				return models.Voter{}, errIdentityTaken
			}
		}
	}
	return models.Voter{}, conflictf("no free voter code after %d attempts", c.attempts)
}
