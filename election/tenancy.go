// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/models"
)

const maxClubNameLen = 100

// Tenancy manages clubs. Each club owns exactly one scope whose config
// row lives and dies with it.
type Tenancy struct {
	db  *sql.DB
	now func() time.Time
}

func NewTenancy(db *sql.DB, now func() time.Time) *Tenancy {
	return &Tenancy{db: db, now: now}
}

func cleanClubName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationf("club name is required")
	}
	if len(name) > maxClubNameLen {
		return "", validationf("club name exceeds %d characters", maxClubNameLen)
	}
	return name, nil
}

// CreateClub stores the club and its default election config together.
func (t *Tenancy) CreateClub(ctx context.Context, name string) (models.Club, error) {
	name, err := cleanClubName(name)
	if err != nil {
		return models.Club{}, err
	}

	club := models.Club{ID: auth.NewID(), Name: name, CreatedAt: utcNow(t.now)}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Club{}, storageError("begin create club", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO club (id, name, created_at) VALUES ($1, $2, $3)
	`, club.ID, club.Name, club.CreatedAt)
	if db.IsUniqueViolation(err) {
		return models.Club{}, conflictf("club %q already exists", name)
	}
	if err != nil {
		return models.Club{}, storageError("insert club", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO election_config (scope, org_name, election_title, is_results_public, is_ballot_hidden, start_date, updated_at)
		VALUES ($1, '', $2, FALSE, FALSE, NULL, $3)
	`, models.ClubScope(club.ID).Key(), club.Name, club.CreatedAt)
	if err != nil {
		return models.Club{}, storageError("insert club config", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Club{}, storageError("commit create club", err)
	}
	return club, nil
}

func (t *Tenancy) GetClub(ctx context.Context, id string) (models.Club, error) {
	return getClub(ctx, t.db, id)
}

func getClub(ctx context.Context, q querier, id string) (models.Club, error) {
	var c models.Club
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM club WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Club{}, notFoundf("club %s not found", id)
	}
	if err != nil {
		return models.Club{}, storageError("load club", err)
	}
	return c, nil
}

// RenameClub returns the club with its previous name for auditing.
func (t *Tenancy) RenameClub(ctx context.Context, id, name string) (club models.Club, oldName string, err error) {
	name, err = cleanClubName(name)
	if err != nil {
		return models.Club{}, "", err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Club{}, "", storageError("begin rename club", err)
	}
	defer tx.Rollback()

	club, err = getClub(ctx, tx, id)
	if err != nil {
		return models.Club{}, "", err
	}
	oldName = club.Name

	_, err = tx.ExecContext(ctx, `UPDATE club SET name = $1 WHERE id = $2`, name, id)
	if db.IsUniqueViolation(err) {
		return models.Club{}, "", conflictf("club %q already exists", name)
	}
	if err != nil {
		return models.Club{}, "", storageError("rename club", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Club{}, "", storageError("commit rename club", err)
	}
	club.Name = name
	return club, oldName, nil
}

func (t *Tenancy) ListClubs(ctx context.Context) ([]models.Club, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM club ORDER BY name, id
	`)
	if err != nil {
		return nil, storageError("list clubs", err)
	}
	defer rows.Close()

	clubs := []models.Club{}
	for rows.Next() {
		var c models.Club
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, storageError("scan club", err)
		}
		clubs = append(clubs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list clubs", err)
	}
	return clubs, nil
}

// DeleteClub removes the club and everything in its scope. A club with
// recorded votes is only removed when force is set.
func (t *Tenancy) DeleteClub(ctx context.Context, id string, force bool) (models.Club, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Club{}, storageError("begin delete club", err)
	}
	defer tx.Rollback()

	club, err := getClub(ctx, tx, id)
	if err != nil {
		return models.Club{}, err
	}
	scope := models.ClubScope(id).Key()

	var votes int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote WHERE scope = $1`, scope).Scan(&votes); err != nil {
		return models.Club{}, storageError("count club votes", err)
	}
	if votes > 0 && !force {
		return models.Club{}, conflictf("club %q has %d recorded votes; deletion requires force", club.Name, votes)
	}

	// Children first so foreign keys hold at every step. Votes are only
	// removed under force; a ballot committed after the count above then
	// blocks the candidate delete through vote.candidate_id.
	stmts := []string{`DELETE FROM candidate_like WHERE scope = $1`}
	if force {
		stmts = append(stmts, `DELETE FROM vote WHERE scope = $1`)
	}
	stmts = append(stmts,
		`DELETE FROM voter WHERE scope = $1`,
		`DELETE FROM candidate WHERE scope = $1`,
		`DELETE FROM election_config WHERE scope = $1`,
	)
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, scope); err != nil {
			if db.IsForeignKeyViolation(err) {
				return models.Club{}, conflictf("club %q received votes during deletion; retry with force", club.Name)
			}
			return models.Club{}, storageError("delete club data", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM club WHERE id = $1`, id); err != nil {
		return models.Club{}, storageError("delete club", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Club{}, storageError("commit delete club", err)
	}
	return club, nil
}
