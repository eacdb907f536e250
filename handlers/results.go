// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/middleware"
	"github.com/danielhkuo/campus-ballot/report"
)

type ResultsHandler struct {
	svc *election.Service
	cfg cliparse.Config
	log *zap.Logger
}

func NewResultsHandler(svc *election.Service, cfg cliparse.Config, log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{svc: svc, cfg: cfg, log: log}
}

// GetResults handles GET /elections/{scope}/results
// Returns 403 until the scope has started and its results are public.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	t, err := h.svc.PublicResults(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "get results", err)
		return
	}
	respond(w, h.log, http.StatusOK, t)
}

// GetTally handles GET /elections/{scope}/tally
// Admin view, available regardless of visibility.
func (h *ResultsHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, r, h.cfg, scope) {
		return
	}

	t, err := h.svc.Tally(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "get tally", err)
		return
	}
	respond(w, h.log, http.StatusOK, t)
}

// GetTallyXLSX handles GET /elections/{scope}/tally.xlsx
func (h *ResultsHandler) GetTallyXLSX(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, r, h.cfg, scope) {
		return
	}

	cfg, t, err := h.svc.Report(r.Context(), scope)
	if err != nil {
		writeError(w, h.log, "download report", err)
		return
	}

	data, err := report.TallyWorkbook(cfg, t)
	if err != nil {
		h.log.Error("failed to render report", zap.String("scope", scope.Key()), zap.Error(err))
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(scope)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn("failed to write report", zap.Error(err))
	}
}
