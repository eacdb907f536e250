// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/campus-ballot/models"
)

// TallyCache holds recently computed tallies. Implementations must treat
// Get misses and errors alike as "compute from storage".
type TallyCache interface {
	Get(ctx context.Context, scope models.Scope) (models.Tally, bool, error)
	Set(ctx context.Context, t models.Tally) error
	Invalidate(ctx context.Context, scope models.Scope) error
}

// TallyRow is one candidate with its raw vote count.
type TallyRow struct {
	Position      string
	CandidateID   string
	CandidateName string
	Votes         int
}

// TallyAggregator counts votes per candidate per position.
type TallyAggregator struct {
	db      *sql.DB
	cache   TallyCache
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewTallyAggregator(db *sql.DB, cache TallyCache, timeout time.Duration, now func() time.Time, log *zap.Logger) *TallyAggregator {
	return &TallyAggregator{db: db, cache: cache, timeout: timeout, now: now, log: log}
}

// Tally never gates on visibility; callers decide who may see it.
func (a *TallyAggregator) Tally(ctx context.Context, scope models.Scope) (models.Tally, error) {
	if err := checkScope(scope); err != nil {
		return models.Tally{}, err
	}

	t, ok, err := a.cache.Get(ctx, scope)
	if err != nil {
		a.log.Warn("tally cache read failed", zap.String("scope", scope.Key()), zap.Error(err))
	} else if ok {
		return t, nil
	}

	// The shared computation must outlive any single caller's cancellation;
	// each caller still stops waiting at its own deadline.
	ch := a.group.DoChan(scope.Key(), func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.compute(cctx, scope)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return models.Tally{}, storageError("tally", ctx.Err())
	}
	if res.Err != nil {
		return models.Tally{}, res.Err
	}
	t = res.Val.(models.Tally)

	if err := a.cache.Set(ctx, t); err != nil {
		a.log.Warn("tally cache write failed", zap.String("scope", scope.Key()), zap.Error(err))
	}
	return t, nil
}

func (a *TallyAggregator) compute(ctx context.Context, scope models.Scope) (models.Tally, error) {
	if _, err := getConfig(ctx, a.db, scope); err != nil {
		return models.Tally{}, err
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT c.position, c.id, c.name, COUNT(v.candidate_id)
		FROM candidate c
		LEFT JOIN vote v ON v.candidate_id = c.id AND v.scope = c.scope
		WHERE c.scope = $1
		GROUP BY c.position, c.id, c.name
	`, scope.Key())
	if err != nil {
		return models.Tally{}, storageError("tally votes", err)
	}
	defer rows.Close()

	var tallyRows []TallyRow
	for rows.Next() {
		var r TallyRow
		if err := rows.Scan(&r.Position, &r.CandidateID, &r.CandidateName, &r.Votes); err != nil {
			return models.Tally{}, storageError("scan tally row", err)
		}
		tallyRows = append(tallyRows, r)
	}
	if err := rows.Err(); err != nil {
		return models.Tally{}, storageError("tally votes", err)
	}

	var ballots int
	err = a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voter WHERE scope = $1 AND has_voted = TRUE
	`, scope.Key()).Scan(&ballots)
	if err != nil {
		return models.Tally{}, storageError("count ballots", err)
	}

	return models.Tally{
		Scope:        scope,
		Positions:    AggregateTally(tallyRows),
		TotalBallots: ballots,
		ComputedAt:   utcNow(a.now),
	}, nil
}

// AggregateTally ranks candidates within each position by descending vote
// count, ties broken by candidate id. Equal counts share a rank. Every
// candidate on the top count is a winner, unless that count is zero.
func AggregateTally(rows []TallyRow) map[string]models.PositionTally {
	grouped := map[string][]models.CandidateTally{}
	for _, r := range rows {
		grouped[r.Position] = append(grouped[r.Position], models.CandidateTally{
			CandidateID:   r.CandidateID,
			CandidateName: r.CandidateName,
			VoteCount:     r.Votes,
		})
	}

	out := make(map[string]models.PositionTally, len(grouped))
	for position, cands := range grouped {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].VoteCount != cands[j].VoteCount {
				return cands[i].VoteCount > cands[j].VoteCount
			}
			return cands[i].CandidateID < cands[j].CandidateID
		})

		pt := models.PositionTally{Position: position, Winners: []string{}}
		rank := 0
		for i := range cands {
			if i == 0 || cands[i].VoteCount != cands[i-1].VoteCount {
				rank = i + 1
			}
			cands[i].Rank = rank
			pt.TotalVotes += cands[i].VoteCount
		}

		if top := cands[0].VoteCount; top > 0 {
			for i := range cands {
				if cands[i].VoteCount == top {
					cands[i].Winner = true
					pt.Winners = append(pt.Winners, cands[i].CandidateID)
				}
			}
		}
		pt.Tied = len(pt.Winners) > 1
		pt.Candidates = cands
		out[position] = pt
	}
	return out
}
