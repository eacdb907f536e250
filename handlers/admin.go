// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/middleware"
	"github.com/danielhkuo/campus-ballot/models"
)

// AdminHandler serves the per-scope administrator endpoints. Every route
// requires the scope's admin key or the primary key.
type AdminHandler struct {
	svc *election.Service
	cfg cliparse.Config
	log *zap.Logger
}

func NewAdminHandler(svc *election.Service, cfg cliparse.Config, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, cfg: cfg, log: log}
}

// authorize resolves the path scope and checks the admin key.
func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) (models.Scope, bool) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return models.Scope{}, false
	}
	if !requireAdmin(w, r, h.cfg, scope) {
		return models.Scope{}, false
	}
	return scope, true
}

// UpdateConfig handles PATCH /elections/{scope}/config
func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var patch models.ConfigPatch
	if err := middleware.ParseJSONBody(r, &patch); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cfg, err := h.svc.UpdateConfig(r.Context(), scope, patch)
	if err != nil {
		writeError(w, h.log, "update config", err)
		return
	}
	respond(w, h.log, http.StatusOK, cfg)
}

// IssueCodes handles POST /elections/{scope}/codes
func (h *AdminHandler) IssueCodes(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.IssueCodesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	voters, err := h.svc.IssueCodes(r.Context(), scope, req.Count)
	if err != nil {
		writeError(w, h.log, "issue codes", err)
		return
	}

	h.log.Info("voter codes issued", zap.String("scope", scope.Key()), zap.Int("count", len(voters)))
	respond(w, h.log, http.StatusCreated, models.IssueCodesResponse{Voters: voters})
}

// ListVoters handles GET /elections/{scope}/voters
func (h *AdminHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	voters, err := h.svc.ListVoters(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "list voters", err)
		return
	}
	respond(w, h.log, http.StatusOK, voters)
}

// DeleteVoter handles DELETE /elections/{scope}/voters/{voter}
func (h *AdminHandler) DeleteVoter(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteVoter(r.Context(), scope, r.PathValue("voter")); err != nil {
		writeError(w, h.log, "delete voter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCandidate handles POST /elections/{scope}/candidates
func (h *AdminHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.svc.AddCandidate(r.Context(), scope, req)
	if err != nil {
		writeError(w, h.log, "add candidate", err)
		return
	}
	respond(w, h.log, http.StatusCreated, c)
}

// DeleteCandidate handles DELETE /elections/{scope}/candidates/{candidate}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteCandidate(r.Context(), scope, r.PathValue("candidate")); err != nil {
		writeError(w, h.log, "delete candidate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Overview handles GET /elections/{scope}/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	ov, err := h.svc.Overview(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "overview", err)
		return
	}
	respond(w, h.log, http.StatusOK, ov)
}
