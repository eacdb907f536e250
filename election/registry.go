// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/campus-ballot/models"
)

const maxConfigTextLen = 200

// ConfigChange describes one field an update actually changed, with the
// audit action it maps to.
type ConfigChange struct {
	Action  string
	Details string
}

// Registry owns the per-scope election configuration.
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

func NewRegistry(db *sql.DB, now func() time.Time) *Registry {
	return &Registry{db: db, now: now}
}

func (r *Registry) GetConfig(ctx context.Context, scope models.Scope) (models.ElectionConfig, error) {
	if err := checkScope(scope); err != nil {
		return models.ElectionConfig{}, err
	}
	return getConfig(ctx, r.db, scope)
}

// UpdateConfig applies a partial update atomically and returns the stored
// result plus one change per field whose value actually moved.
func (r *Registry) UpdateConfig(ctx context.Context, scope models.Scope, patch models.ConfigPatch) (models.ElectionConfig, []ConfigChange, error) {
	if err := checkScope(scope); err != nil {
		return models.ElectionConfig{}, nil, err
	}
	if patch.Empty() {
		return models.ElectionConfig{}, nil, validationf("no settings to update")
	}
	if patch.StartDate != nil && patch.ClearStartDate {
		return models.ElectionConfig{}, nil, validationf("start_date and clear_start_date are mutually exclusive")
	}
	for field, v := range map[string]*string{"org_name": patch.OrgName, "election_title": patch.ElectionTitle} {
		if v != nil && len(strings.TrimSpace(*v)) > maxConfigTextLen {
			return models.ElectionConfig{}, nil, validationf("%s exceeds %d characters", field, maxConfigTextLen)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ElectionConfig{}, nil, storageError("begin config update", err)
	}
	defer tx.Rollback()

	cfg, err := getConfig(ctx, tx, scope)
	if err != nil {
		return models.ElectionConfig{}, nil, err
	}

	changes := applyPatch(&cfg, patch)
	if len(changes) == 0 {
		return cfg, nil, nil
	}
	cfg.UpdatedAt = utcNow(r.now)

	_, err = tx.ExecContext(ctx, `
		UPDATE election_config
		SET org_name = $1, election_title = $2, is_results_public = $3,
		    is_ballot_hidden = $4, start_date = $5, updated_at = $6
		WHERE scope = $7
	`, cfg.OrgName, cfg.ElectionTitle, cfg.IsResultsPublic, cfg.IsBallotHidden,
		nullTime(cfg.StartDate), cfg.UpdatedAt, scope.Key())
	if err != nil {
		return models.ElectionConfig{}, nil, storageError("update election config", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ElectionConfig{}, nil, storageError("commit config update", err)
	}
	return cfg, changes, nil
}

func applyPatch(cfg *models.ElectionConfig, patch models.ConfigPatch) []ConfigChange {
	var changes []ConfigChange

	brandingChanged := false
	if patch.OrgName != nil {
		if v := strings.TrimSpace(*patch.OrgName); v != cfg.OrgName {
			cfg.OrgName = v
			brandingChanged = true
		}
	}
	if patch.ElectionTitle != nil {
		if v := strings.TrimSpace(*patch.ElectionTitle); v != cfg.ElectionTitle {
			cfg.ElectionTitle = v
			brandingChanged = true
		}
	}
	if brandingChanged {
		changes = append(changes, ConfigChange{
			Action:  models.ActionUpdateSettings,
			Details: fmt.Sprintf("Updated branding to %q - %q", cfg.OrgName, cfg.ElectionTitle),
		})
	}

	if patch.IsResultsPublic != nil && *patch.IsResultsPublic != cfg.IsResultsPublic {
		cfg.IsResultsPublic = *patch.IsResultsPublic
		state := "HIDDEN"
		if cfg.IsResultsPublic {
			state = "PUBLIC"
		}
		changes = append(changes, ConfigChange{
			Action:  models.ActionToggleResults,
			Details: "Results visibility set to " + state,
		})
	}

	if patch.IsBallotHidden != nil && *patch.IsBallotHidden != cfg.IsBallotHidden {
		cfg.IsBallotHidden = *patch.IsBallotHidden
		details := "Ballot opened"
		if cfg.IsBallotHidden {
			details = "Ballot closed"
		}
		changes = append(changes, ConfigChange{Action: models.ActionToggleBallot, Details: details})
	}

	switch {
	case patch.ClearStartDate && cfg.StartDate != nil:
		cfg.StartDate = nil
		changes = append(changes, ConfigChange{Action: models.ActionSetStartDate, Details: "Start date cleared"})
	case patch.StartDate != nil:
		start := patch.StartDate.UTC()
		if cfg.StartDate == nil || !cfg.StartDate.Equal(start) {
			cfg.StartDate = &start
			changes = append(changes, ConfigChange{
				Action:  models.ActionSetStartDate,
				Details: "Start date set to " + start.Format(time.RFC3339),
			})
		}
	}

	return changes
}
