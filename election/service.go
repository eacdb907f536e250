// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/campus-ballot/models"
)

// Options tunes a Service. Zero values fall back to the defaults below.
type Options struct {
	MaxCodesPerBatch   int
	CodeInsertAttempts int
	RequestTimeout     time.Duration
	Cache              TallyCache
	Now                func() time.Time
}

const (
	defaultMaxCodesPerBatch   = 100
	defaultCodeInsertAttempts = 8
	defaultRequestTimeout     = 5 * time.Second
)

// Service is the entry point for every election operation. It bounds each
// call with a storage deadline and writes the audit trail for
// administrator actions.
type Service struct {
	db      *sql.DB
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
	cache   TallyCache

	registry *Registry
	codes    *CodeIssuer
	ballots  *BallotCaster
	tallies  *TallyAggregator
	audit    *AuditLog
	tenancy  *Tenancy
	roster   *Roster
}

type nopCache struct{}

func (nopCache) Get(context.Context, models.Scope) (models.Tally, bool, error) {
	return models.Tally{}, false, nil
}
func (nopCache) Set(context.Context, models.Tally) error        { return nil }
func (nopCache) Invalidate(context.Context, models.Scope) error { return nil }

func NewService(db *sql.DB, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxCodesPerBatch <= 0 {
		opts.MaxCodesPerBatch = defaultMaxCodesPerBatch
	}
	if opts.CodeInsertAttempts <= 0 {
		opts.CodeInsertAttempts = defaultCodeInsertAttempts
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Cache == nil {
		opts.Cache = nopCache{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	codes := NewCodeIssuer(db, opts.MaxCodesPerBatch, opts.CodeInsertAttempts, opts.Now)
	return &Service{
		db:       db,
		log:      log,
		timeout:  opts.RequestTimeout,
		now:      opts.Now,
		cache:    opts.Cache,
		registry: NewRegistry(db, opts.Now),
		codes:    codes,
		ballots:  NewBallotCaster(db, opts.Cache, opts.Now, log),
		tallies:  NewTallyAggregator(db, opts.Cache, opts.RequestTimeout, opts.Now, log),
		audit:    NewAuditLog(db, opts.Now),
		tenancy:  NewTenancy(db, opts.Now),
		roster:   NewRoster(db, codes, opts.Cache, opts.Now, log),
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// record writes an audit entry on its own deadline. A failed write is
// logged and never undoes the mutation it describes.
func (s *Service) record(ctx context.Context, scope models.Scope, action, details string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if _, err := s.audit.Record(ctx, scope, action, details); err != nil {
		s.log.Error("audit record failed",
			zap.String("scope", scope.Key()),
			zap.String("action_type", action),
			zap.String("details", details),
			zap.Error(err))
	}
}

// Clubs

func (s *Service) ListClubs(ctx context.Context) ([]models.Club, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.tenancy.ListClubs(ctx)
}

func (s *Service) CreateClub(ctx context.Context, name string) (models.Club, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	club, err := s.tenancy.CreateClub(ctx, name)
	if err != nil {
		return models.Club{}, err
	}
	s.record(ctx, models.ClubScope(club.ID), models.ActionCreateClub, fmt.Sprintf("Created club %q", club.Name))
	return club, nil
}

func (s *Service) RenameClub(ctx context.Context, id, name string) (models.Club, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	club, oldName, err := s.tenancy.RenameClub(ctx, id, name)
	if err != nil {
		return models.Club{}, err
	}
	if oldName != club.Name {
		s.record(ctx, models.ClubScope(club.ID), models.ActionUpdateClub, fmt.Sprintf("Renamed club %q to %q", oldName, club.Name))
	}
	return club, nil
}

func (s *Service) DeleteClub(ctx context.Context, id string, force bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	club, err := s.tenancy.DeleteClub(ctx, id, force)
	if err != nil {
		return err
	}
	scope := models.ClubScope(club.ID)
	if err := s.cache.Invalidate(ctx, scope); err != nil {
		s.log.Warn("tally cache invalidation failed", zap.String("scope", scope.Key()), zap.Error(err))
	}
	details := fmt.Sprintf("Deleted club %q", club.Name)
	if force {
		details += " (forced)"
	}
	s.record(ctx, scope, models.ActionDeleteClub, details)
	return nil
}

// Configuration

func (s *Service) GetConfig(ctx context.Context, scope models.Scope) (models.ElectionConfig, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.registry.GetConfig(ctx, scope)
}

// ElectionInfo is the voter-facing view of a scope.
func (s *Service) ElectionInfo(ctx context.Context, scope models.Scope) (models.ElectionInfoResponse, error) {
	cfg, err := s.GetConfig(ctx, scope)
	if err != nil {
		return models.ElectionInfoResponse{}, err
	}
	return models.ElectionInfoResponse{Config: cfg, Visibility: VisibilityAt(cfg, s.now())}, nil
}

// UpdateConfig writes one audit entry per changed setting.
func (s *Service) UpdateConfig(ctx context.Context, scope models.Scope, patch models.ConfigPatch) (models.ElectionConfig, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cfg, changes, err := s.registry.UpdateConfig(ctx, scope, patch)
	if err != nil {
		return models.ElectionConfig{}, err
	}
	for _, c := range changes {
		s.record(ctx, scope, c.Action, c.Details)
	}
	if len(changes) > 0 {
		s.log.Info("election config updated", zap.String("scope", scope.Key()), zap.Int("changes", len(changes)))
	}
	return cfg, nil
}

// Voters

func (s *Service) IssueCodes(ctx context.Context, scope models.Scope, count int) ([]models.Voter, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	voters, err := s.codes.IssueCodes(ctx, scope, count)
	if err != nil {
		return nil, err
	}
	s.record(ctx, scope, models.ActionGenerateCodes, fmt.Sprintf("Generated %d voter codes", len(voters)))
	return voters, nil
}

func (s *Service) ListVoters(ctx context.Context, scope models.Scope) ([]models.Voter, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.roster.ListVoters(ctx, scope)
}

func (s *Service) DeleteVoter(ctx context.Context, scope models.Scope, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, err := s.roster.DeleteVoter(ctx, scope, id)
	if err != nil {
		return err
	}
	s.record(ctx, scope, models.ActionDeleteVoter, "Deleted voter "+v.Code)
	return nil
}

// Login authenticates a voter code. It works in every phase so voters can
// check their status.
func (s *Service) Login(ctx context.Context, scope models.Scope, code string) (models.Voter, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.roster.LookupVoter(ctx, scope, code)
}

// SignIn resolves a verified identity to its voter, creating one on first
// sign-in.
func (s *Service) SignIn(ctx context.Context, scope models.Scope, identity string) (models.Voter, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, _, err := s.roster.ResolveOrCreateVoter(ctx, scope, identity)
	return v, err
}

// Candidates

func (s *Service) ListCandidates(ctx context.Context, scope models.Scope) ([]models.Candidate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.roster.ListCandidates(ctx, scope)
}

func (s *Service) AddCandidate(ctx context.Context, scope models.Scope, req models.AddCandidateRequest) (models.Candidate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.roster.AddCandidate(ctx, scope, req)
	if err != nil {
		return models.Candidate{}, err
	}
	s.record(ctx, scope, models.ActionAddCandidate, fmt.Sprintf("Added %s for %s", c.Name, c.Position))
	return c, nil
}

func (s *Service) DeleteCandidate(ctx context.Context, scope models.Scope, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.roster.DeleteCandidate(ctx, scope, id)
	if err != nil {
		return err
	}
	s.record(ctx, scope, models.ActionDeleteCandidate, fmt.Sprintf("Deleted %s (%s)", c.Name, c.Position))
	return nil
}

func (s *Service) Like(ctx context.Context, scope models.Scope, candidateID, voterCode string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.roster.Like(ctx, scope, candidateID, voterCode)
}

// Voting

func (s *Service) Ballot(ctx context.Context, scope models.Scope, voterCode string) (models.BallotResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.ballots.Ballot(ctx, scope, voterCode)
}

func (s *Service) CastBallot(ctx context.Context, scope models.Scope, voterCode string, selections map[string]string) (models.BallotReceipt, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.ballots.CastBallot(ctx, scope, voterCode, selections)
}

// Results

// Tally is the administrator view and ignores visibility.
func (s *Service) Tally(ctx context.Context, scope models.Scope) (models.Tally, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.tallies.Tally(ctx, scope)
}

// PublicResults returns the tally only once results are visible.
func (s *Service) PublicResults(ctx context.Context, scope models.Scope) (models.Tally, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cfg, err := s.registry.GetConfig(ctx, scope)
	if err != nil {
		return models.Tally{}, err
	}
	if !VisibilityAt(cfg, s.now()).ResultsVisible {
		return models.Tally{}, forbiddenf("results are not public")
	}
	return s.tallies.Tally(ctx, scope)
}

// Report returns what a results export needs and records the download.
func (s *Service) Report(ctx context.Context, scope models.Scope) (models.ElectionConfig, models.Tally, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cfg, err := s.registry.GetConfig(ctx, scope)
	if err != nil {
		return models.ElectionConfig{}, models.Tally{}, err
	}
	t, err := s.tallies.Tally(ctx, scope)
	if err != nil {
		return models.ElectionConfig{}, models.Tally{}, err
	}
	s.record(ctx, scope, models.ActionDownloadReport, "Downloaded results report")
	return cfg, t, nil
}

// Overview gathers the admin dashboard figures concurrently.
func (s *Service) Overview(ctx context.Context, scope models.Scope) (models.Overview, error) {
	if err := checkScope(scope); err != nil {
		return models.Overview{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var ov models.Overview
	key := scope.Key()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cfg, err := getConfig(gctx, s.db, scope)
		if err != nil {
			return err
		}
		ov.Config = cfg
		ov.Visibility = VisibilityAt(cfg, s.now())
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COUNT(*), COALESCE(SUM(CASE WHEN has_voted THEN 1 ELSE 0 END), 0)
			FROM voter WHERE scope = $1
		`, key).Scan(&ov.VoterCount, &ov.VotedCount)
		if err != nil {
			return storageError("count voters", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM vote WHERE scope = $1`, key).Scan(&ov.VotesRecorded)
		if err != nil {
			return storageError("count votes", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM candidate WHERE scope = $1`, key).Scan(&ov.CandidateCount)
		if err != nil {
			return storageError("count candidates", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.Overview{}, err
	}
	if ov.VoterCount > 0 {
		ov.ParticipationPct = float64(ov.VotedCount) * 100 / float64(ov.VoterCount)
	}
	return ov, nil
}

// Audit

func (s *Service) AuditLog(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.audit.List(ctx, filter)
}
