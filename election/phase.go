// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"time"

	"github.com/danielhkuo/campus-ballot/models"
)

// PhaseAt derives the voter-facing phase. Rules apply in order:
// a future start date wins over everything, then the admin ballot flag.
func PhaseAt(cfg models.ElectionConfig, now time.Time) models.Phase {
	if cfg.StartDate != nil && now.Before(*cfg.StartDate) {
		return models.PhaseNotStarted
	}
	if cfg.IsBallotHidden {
		return models.PhaseClosedByAdmin
	}
	return models.PhaseOpen
}

// VisibilityAt combines the phase with the independent results flag.
// Nothing is exposed before the start date.
func VisibilityAt(cfg models.ElectionConfig, now time.Time) models.Visibility {
	phase := PhaseAt(cfg, now)
	return models.Visibility{
		Phase:          phase,
		BallotOpen:     phase == models.PhaseOpen,
		ResultsVisible: phase != models.PhaseNotStarted && cfg.IsResultsPublic,
	}
}
