// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/handlers"
	"github.com/danielhkuo/campus-ballot/middleware"
)

func NewRouter(svc *election.Service, cfg cliparse.Config, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	clubHandler := handlers.NewClubHandler(svc, cfg, log)
	adminHandler := handlers.NewAdminHandler(svc, cfg, log)
	votingHandler := handlers.NewVotingHandler(svc, cfg, log)
	resultsHandler := handlers.NewResultsHandler(svc, cfg, log)

	logged := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(log, h)
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Clubs and audit (primary key for everything but listing and renaming)
	mux.HandleFunc("GET /clubs", logged(clubHandler.ListClubs))
	mux.HandleFunc("POST /clubs", logged(clubHandler.CreateClub))
	mux.HandleFunc("PATCH /clubs/{club}", logged(clubHandler.RenameClub))
	mux.HandleFunc("DELETE /clubs/{club}", logged(clubHandler.DeleteClub))
	mux.HandleFunc("GET /audit-log", logged(clubHandler.AuditLog))

	// Voter-facing, scope is "primary" or "club:<id>"
	mux.HandleFunc("GET /elections/{scope}", logged(votingHandler.GetElection))
	mux.HandleFunc("GET /elections/{scope}/candidates", logged(votingHandler.ListCandidates))
	mux.HandleFunc("POST /elections/{scope}/login", logged(votingHandler.Login))
	mux.HandleFunc("POST /elections/{scope}/sign-in", logged(votingHandler.SignIn))
	mux.HandleFunc("GET /elections/{scope}/ballot", logged(votingHandler.GetBallot))
	mux.HandleFunc("POST /elections/{scope}/ballots", logged(votingHandler.CastBallot))
	mux.HandleFunc("POST /elections/{scope}/candidates/{candidate}/like", logged(votingHandler.Like))
	mux.HandleFunc("GET /elections/{scope}/results", logged(resultsHandler.GetResults))

	// Scope administration (requires X-Admin-Key)
	mux.HandleFunc("PATCH /elections/{scope}/config", logged(adminHandler.UpdateConfig))
	mux.HandleFunc("POST /elections/{scope}/codes", logged(adminHandler.IssueCodes))
	mux.HandleFunc("GET /elections/{scope}/voters", logged(adminHandler.ListVoters))
	mux.HandleFunc("DELETE /elections/{scope}/voters/{voter}", logged(adminHandler.DeleteVoter))
	mux.HandleFunc("POST /elections/{scope}/candidates", logged(adminHandler.AddCandidate))
	mux.HandleFunc("DELETE /elections/{scope}/candidates/{candidate}", logged(adminHandler.DeleteCandidate))
	mux.HandleFunc("GET /elections/{scope}/overview", logged(adminHandler.Overview))
	mux.HandleFunc("GET /elections/{scope}/tally", logged(resultsHandler.GetTally))
	mux.HandleFunc("GET /elections/{scope}/tally.xlsx", logged(resultsHandler.GetTallyXLSX))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campus-ballot API v1"))
	})

	return mux
}
