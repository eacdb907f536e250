// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/models"
)

// Audit listing bounds
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditFilter narrows a listing. A zero Scope lists every scope.
type AuditFilter struct {
	Scope models.Scope
	Limit int
}

// AuditLog is append-only: entries are never updated or deleted.
type AuditLog struct {
	db  *sql.DB
	now func() time.Time
}

func NewAuditLog(db *sql.DB, now func() time.Time) *AuditLog {
	return &AuditLog{db: db, now: now}
}

func (a *AuditLog) Record(ctx context.Context, scope models.Scope, actionType, details string) (models.AuditLogEntry, error) {
	if err := checkScope(scope); err != nil {
		return models.AuditLogEntry{}, err
	}
	if actionType == "" {
		return models.AuditLogEntry{}, validationf("action type is required")
	}

	entry := models.AuditLogEntry{
		ID:         auth.NewID(),
		Scope:      scope.Key(),
		ActionType: actionType,
		Details:    details,
		CreatedAt:  utcNow(a.now),
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, scope, action_type, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.Scope, entry.ActionType, entry.Details, entry.CreatedAt)
	if err != nil {
		return models.AuditLogEntry{}, storageError("record audit entry", err)
	}
	return entry, nil
}

// List returns entries newest first.
func (a *AuditLog) List(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error) {
	limit := filter.Limit
	switch {
	case limit < 0:
		return nil, validationf("limit must not be negative")
	case limit == 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Scope.Valid() {
		rows, err = a.db.QueryContext(ctx, `
			SELECT id, scope, action_type, details, created_at
			FROM audit_log
			WHERE scope = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, filter.Scope.Key(), limit)
	} else {
		rows, err = a.db.QueryContext(ctx, `
			SELECT id, scope, action_type, details, created_at
			FROM audit_log
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, storageError("list audit log", err)
	}
	defer rows.Close()

	entries := []models.AuditLogEntry{}
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Scope, &e.ActionType, &e.Details, &e.CreatedAt); err != nil {
			return nil, storageError("scan audit entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list audit log", err)
	}
	return entries, nil
}
