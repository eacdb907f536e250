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

// Request headers
const (
	HeaderAdminKey  = "X-Admin-Key"
	HeaderVoterCode = "X-Voter-Code"
)

// statusFor maps the election error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, election.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, election.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, election.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, election.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, election.ErrExternalService):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports a service error. Server-side failures are logged and
// their details stay out of the response.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		log.Error(op+" failed", zap.Error(err))
		middleware.ErrorResponse(w, status, "Storage temporarily unavailable, please retry")
	case http.StatusInternalServerError:
		log.Error(op+" failed", zap.Error(err))
		middleware.ErrorResponse(w, status, "Internal error")
	default:
		middleware.ErrorResponse(w, status, err.Error())
	}
}

// respond writes a success payload; encode failures can only be logged.
func respond(w http.ResponseWriter, log *zap.Logger, status int, data interface{}) {
	if err := middleware.JSONResponse(w, status, data); err != nil {
		log.Error("write response failed", zap.Int("status", status), zap.Error(err))
	}
}

// scopeFromPath reads the {scope} path segment ("primary" or "club:<id>").
func scopeFromPath(w http.ResponseWriter, r *http.Request) (models.Scope, bool) {
	scope, err := models.ParseScope(r.PathValue("scope"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid election scope")
		return models.Scope{}, false
	}
	return scope, true
}

// requireAdmin accepts the scope's own admin key or the primary key,
// which administers every scope.
func requireAdmin(w http.ResponseWriter, r *http.Request, cfg cliparse.Config, scope models.Scope) bool {
	key := r.Header.Get(HeaderAdminKey)
	if auth.ValidateAdminKey(scope.Key(), key, cfg.AdminKeySalt) == nil ||
		auth.ValidateAdminKey(models.Primary().Key(), key, cfg.AdminKeySalt) == nil {
		return true
	}
	middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
	return false
}

// requirePrimaryAdmin guards operations that span scopes.
func requirePrimaryAdmin(w http.ResponseWriter, r *http.Request, cfg cliparse.Config) bool {
	if auth.ValidateAdminKey(models.Primary().Key(), r.Header.Get(HeaderAdminKey), cfg.AdminKeySalt) == nil {
		return true
	}
	middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
	return false
}

func voterCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := r.Header.Get(HeaderVoterCode)
	if code == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Code header required")
		return "", false
	}
	return code, true
}
