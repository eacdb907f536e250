// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/middleware"
	"github.com/danielhkuo/campus-ballot/models"
)

type VotingHandler struct {
	svc *election.Service
	cfg cliparse.Config
	log *zap.Logger
}

func NewVotingHandler(svc *election.Service, cfg cliparse.Config, log *zap.Logger) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg, log: log}
}

// GetElection handles GET /elections/{scope}
// Returns branding and what voters may currently do.
func (h *VotingHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	info, err := h.svc.ElectionInfo(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "get election", err)
		return
	}
	respond(w, h.log, http.StatusOK, info)
}

// ListCandidates handles GET /elections/{scope}/candidates
func (h *VotingHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	candidates, err := h.svc.ListCandidates(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "list candidates", err)
		return
	}
	respond(w, h.log, http.StatusOK, candidates)
}

// Login handles POST /elections/{scope}/login
func (h *VotingHandler) Login(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	v, err := h.svc.Login(r.Context(), scope, req.Code)
	if err != nil {
		writeError(w, h.log, "login", err)
		return
	}
	respond(w, h.log, http.StatusOK, v)
}

// SignIn handles POST /elections/{scope}/sign-in
// The identity token is verified here; the voter is created on first sight.
func (h *VotingHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	// Verified sign-in is off without a secret
	if h.cfg.IdentityTokenSecret == "" {
		middleware.ErrorResponse(w, http.StatusNotFound, "Verified sign-in is not enabled")
		return
	}

	var req models.SignInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, err := auth.VerifyIdentityToken(req.IDToken, []byte(h.cfg.IdentityTokenSecret), h.cfg.AllowedEmailDomain)
	if errors.Is(err, auth.ErrEmailDomain) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Email domain not allowed")
		return
	}
	if err != nil {
		h.log.Debug("identity token rejected", zap.Error(err))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid identity token")
		return
	}

	identity := id.Email
	if identity == "" {
		identity = id.Subject
	}

	v, err := h.svc.SignIn(r.Context(), scope, identity)
	if err != nil {
		writeError(w, h.log, "sign in", err)
		return
	}
	respond(w, h.log, http.StatusOK, v)
}

// GetBallot handles GET /elections/{scope}/ballot
func (h *VotingHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	code, ok := voterCode(w, r)
	if !ok {
		return
	}

	ballot, err := h.svc.Ballot(r.Context(), scope, code)
	if err != nil {
		writeError(w, h.log, "get ballot", err)
		return
	}
	respond(w, h.log, http.StatusOK, ballot)
}

// CastBallot handles POST /elections/{scope}/ballots
func (h *VotingHandler) CastBallot(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	code, ok := voterCode(w, r)
	if !ok {
		return
	}

	var req models.CastBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	receipt, err := h.svc.CastBallot(r.Context(), scope, code, req.Selections)
	if err != nil {
		writeError(w, h.log, "cast ballot", err)
		return
	}

	h.log.Info("ballot cast", zap.String("scope", scope.Key()), zap.Int("positions", len(receipt.Votes)))
	respond(w, h.log, http.StatusCreated, receipt)
}

// Like handles POST /elections/{scope}/candidates/{candidate}/like
// Repeating a like is accepted and reports liked=false.
func (h *VotingHandler) Like(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	code, ok := voterCode(w, r)
	if !ok {
		return
	}

	liked, err := h.svc.Like(r.Context(), scope, r.PathValue("candidate"), code)
	if err != nil {
		writeError(w, h.log, "like candidate", err)
		return
	}

	resp := models.LikeResponse{Liked: liked, Message: "Liked"}
	if !liked {
		resp.Message = "Already liked"
	}
	respond(w, h.log, http.StatusOK, resp)
}
