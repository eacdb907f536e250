// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/middleware"
	"github.com/danielhkuo/campus-ballot/models"
)

type ClubHandler struct {
	svc *election.Service
	cfg cliparse.Config
	log *zap.Logger
}

func NewClubHandler(svc *election.Service, cfg cliparse.Config, log *zap.Logger) *ClubHandler {
	return &ClubHandler{svc: svc, cfg: cfg, log: log}
}

// ListClubs handles GET /clubs
func (h *ClubHandler) ListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.svc.ListClubs(r.Context())
	if err != nil {
		writeError(w, h.log, "list clubs", err)
		return
	}
	respond(w, h.log, http.StatusOK, clubs)
}

// CreateClub handles POST /clubs
func (h *ClubHandler) CreateClub(w http.ResponseWriter, r *http.Request) {
	if !requirePrimaryAdmin(w, r, h.cfg) {
		return
	}

	var req models.CreateClubRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	club, err := h.svc.CreateClub(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.log, "create club", err)
		return
	}

	h.log.Info("club created", zap.String("club_id", club.ID), zap.String("name", club.Name))

	respond(w, h.log, http.StatusCreated, models.CreateClubResponse{
		Club:     club,
		AdminKey: auth.GenerateAdminKey(models.ClubScope(club.ID).Key(), h.cfg.AdminKeySalt),
	})
}

// RenameClub handles PATCH /clubs/{club}
func (h *ClubHandler) RenameClub(w http.ResponseWriter, r *http.Request) {
	clubID := r.PathValue("club")
	if !requireAdmin(w, r, h.cfg, models.ClubScope(clubID)) {
		return
	}

	var req models.RenameClubRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	club, err := h.svc.RenameClub(r.Context(), clubID, req.Name)
	if err != nil {
		writeError(w, h.log, "rename club", err)
		return
	}
	respond(w, h.log, http.StatusOK, club)
}

// DeleteClub handles DELETE /clubs/{club}?force=true
func (h *ClubHandler) DeleteClub(w http.ResponseWriter, r *http.Request) {
	if !requirePrimaryAdmin(w, r, h.cfg) {
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		var err error
		if force, err = strconv.ParseBool(v); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "force must be true or false")
			return
		}
	}

	clubID := r.PathValue("club")
	if err := h.svc.DeleteClub(r.Context(), clubID, force); err != nil {
		writeError(w, h.log, "delete club", err)
		return
	}

	h.log.Info("club deleted", zap.String("club_id", clubID), zap.Bool("force", force))
	w.WriteHeader(http.StatusNoContent)
}

// AuditLog handles GET /audit-log?scope=...&limit=...
func (h *ClubHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if !requirePrimaryAdmin(w, r, h.cfg) {
		return
	}

	var filter election.AuditFilter
	q := r.URL.Query()
	if s := q.Get("scope"); s != "" {
		scope, err := models.ParseScope(s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid election scope")
			return
		}
		filter.Scope = scope
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		filter.Limit = n
	}

	entries, err := h.svc.AuditLog(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, "list audit log", err)
		return
	}
	respond(w, h.log, http.StatusOK, entries)
}
