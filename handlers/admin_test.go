// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

func TestUpdateConfig(t *testing.T) {
	_, svc, cfg := setupTest(t)
	handler := NewAdminHandler(svc, cfg, testLogger)
	scope := models.Primary()

	patch := func(body interface{}, headers map[string]string) *httptest.ResponseRecorder {
		req := scoped(testutil.MakeRequest("PATCH", "/elections/primary/config", body, headers), scope)
		w := httptest.NewRecorder()
		handler.UpdateConfig(w, req)
		return w
	}

	t.Run("requires admin key", func(t *testing.T) {
		testutil.AssertStatus(t, patch(map[string]any{"is_results_public": true}, nil), http.StatusUnauthorized)
	})

	t.Run("applies patch", func(t *testing.T) {
		w := patch(map[string]any{
			"org_name":          "Student Union",
			"election_title":    "Spring Election",
			"is_results_public": true,
		}, adminHeaders(cfg, scope))
		testutil.AssertStatus(t, w, http.StatusOK)

		var got models.ElectionConfig
		testutil.AssertJSON(t, w, &got)
		if got.OrgName != "Student Union" || got.ElectionTitle != "Spring Election" || !got.IsResultsPublic {
			t.Errorf("Patch not applied: %+v", got)
		}

		entries, err := svc.AuditLog(t.Context(), election.AuditFilter{Scope: scope})
		if err != nil {
			t.Fatalf("AuditLog failed: %v", err)
		}
		actions := map[string]bool{}
		for _, e := range entries {
			actions[e.ActionType] = true
		}
		if !actions[models.ActionUpdateSettings] || !actions[models.ActionToggleResults] {
			t.Errorf("Expected settings and results audit entries, got %+v", entries)
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		testutil.AssertStatus(t, patch(map[string]any{}, adminHeaders(cfg, scope)), http.StatusBadRequest)
	})
}

func TestIssueCodes(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	handler := NewAdminHandler(svc, cfg, testLogger)
	club := testutil.CreateTestClub(t, conn, "Chess Club")

	tests := []struct {
		name           string
		scope          models.Scope
		count          int
		headers        map[string]string
		expectedStatus int
	}{
		{"primary batch", models.Primary(), 5, adminHeaders(cfg, models.Primary()), http.StatusCreated},
		{"club batch with club key", club, 3, adminHeaders(cfg, club), http.StatusCreated},
		{"club key cannot touch primary", models.Primary(), 1, adminHeaders(cfg, club), http.StatusUnauthorized},
		{"zero count", club, 0, adminHeaders(cfg, club), http.StatusBadRequest},
		{"over batch limit", club, cfg.MaxCodesPerBatch + 1, adminHeaders(cfg, club), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.CountRows(t, conn, "voter", tt.scope)

			req := scoped(testutil.MakeRequest("POST", "/elections/x/codes", models.IssueCodesRequest{Count: tt.count}, tt.headers), tt.scope)
			w := httptest.NewRecorder()
			handler.IssueCodes(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			after := testutil.CountRows(t, conn, "voter", tt.scope)
			if tt.expectedStatus != http.StatusCreated {
				if after != before {
					t.Errorf("Rejected batch changed voter count from %d to %d", before, after)
				}
				return
			}

			var resp models.IssueCodesResponse
			testutil.AssertJSON(t, w, &resp)
			if len(resp.Voters) != tt.count {
				t.Errorf("Expected %d codes, got %d", tt.count, len(resp.Voters))
			}
			seen := map[string]bool{}
			for _, v := range resp.Voters {
				if seen[v.Code] {
					t.Errorf("Duplicate code %s in batch", v.Code)
				}
				seen[v.Code] = true
			}
			if after != before+tt.count {
				t.Errorf("Expected %d voters, got %d", before+tt.count, after)
			}
		})
	}
}

func TestVoterManagement(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	handler := NewAdminHandler(svc, cfg, testLogger)
	scope := models.Primary()
	ids := seedCandidates(t, conn, scope)

	fresh := testutil.CreateTestVoter(t, conn, scope)
	voted := testutil.CreateTestVoter(t, conn, scope)
	testutil.CastTestBallot(t, conn, scope, voted, map[string]string{"President": ids["Ada"], "Treasurer": ids["Linus"]})

	req := scoped(testutil.MakeRequest("GET", "/elections/primary/voters", nil, adminHeaders(cfg, scope)), scope)
	w := httptest.NewRecorder()
	handler.ListVoters(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var voters []models.Voter
	testutil.AssertJSON(t, w, &voters)
	if len(voters) != 2 {
		t.Fatalf("Expected 2 voters, got %d", len(voters))
	}

	deleteVoter := func(code string) *httptest.ResponseRecorder {
		req := scoped(testutil.MakeRequest("DELETE", "/elections/primary/voters/x", nil, adminHeaders(cfg, scope)), scope)
		req.SetPathValue("voter", testutil.VoterID(t, conn, scope, code))
		w := httptest.NewRecorder()
		handler.DeleteVoter(w, req)
		return w
	}

	// A voter who already voted cannot be removed
	testutil.AssertStatus(t, deleteVoter(voted), http.StatusConflict)
	testutil.AssertStatus(t, deleteVoter(fresh), http.StatusNoContent)

	if n := testutil.CountRows(t, conn, "voter", scope); n != 1 {
		t.Errorf("Expected 1 voter left, got %d", n)
	}
}

func TestCandidateManagement(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	handler := NewAdminHandler(svc, cfg, testLogger)
	scope := models.Primary()

	add := func(req models.AddCandidateRequest) *httptest.ResponseRecorder {
		r := scoped(testutil.MakeRequest("POST", "/elections/primary/candidates", req, adminHeaders(cfg, scope)), scope)
		w := httptest.NewRecorder()
		handler.AddCandidate(w, r)
		return w
	}

	w := add(models.AddCandidateRequest{
		Name:      "<b>Ada</b> Lovelace",
		Position:  "President",
		Manifesto: "<p>More <em>engines</em></p><script>alert(1)</script>",
	})
	testutil.AssertStatus(t, w, http.StatusCreated)

	var c models.Candidate
	testutil.AssertJSON(t, w, &c)
	if c.Name != "Ada Lovelace" {
		t.Errorf("Expected sanitized name, got %q", c.Name)
	}
	if c.Manifesto != "<p>More <em>engines</em></p>" {
		t.Errorf("Expected sanitized manifesto, got %q", c.Manifesto)
	}

	testutil.AssertStatus(t, add(models.AddCandidateRequest{Name: "No Position", Manifesto: "m"}), http.StatusBadRequest)

	deleteCandidate := func(id string) *httptest.ResponseRecorder {
		r := scoped(testutil.MakeRequest("DELETE", "/elections/primary/candidates/x", nil, adminHeaders(cfg, scope)), scope)
		r.SetPathValue("candidate", id)
		w := httptest.NewRecorder()
		handler.DeleteCandidate(w, r)
		return w
	}

	// Candidates with recorded votes are kept
	voted := testutil.AddTestCandidate(t, conn, scope, "Grace", "Treasurer")
	code := testutil.CreateTestVoter(t, conn, scope)
	testutil.CastTestBallot(t, conn, scope, code, map[string]string{"Treasurer": voted})
	testutil.AssertStatus(t, deleteCandidate(voted), http.StatusConflict)

	testutil.AssertStatus(t, deleteCandidate(c.ID), http.StatusNoContent)
	testutil.AssertStatus(t, deleteCandidate(c.ID), http.StatusNotFound)
}

func TestOverview(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	handler := NewAdminHandler(svc, cfg, testLogger)
	scope := models.Primary()
	ids := seedCandidates(t, conn, scope)

	testutil.CreateTestVoter(t, conn, scope)
	code := testutil.CreateTestVoter(t, conn, scope)
	testutil.CastTestBallot(t, conn, scope, code, map[string]string{"President": ids["Ada"], "Treasurer": ids["Linus"]})

	req := scoped(testutil.MakeRequest("GET", "/elections/primary/overview", nil, adminHeaders(cfg, scope)), scope)
	w := httptest.NewRecorder()
	handler.Overview(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var ov models.Overview
	testutil.AssertJSON(t, w, &ov)
	if ov.VoterCount != 2 || ov.VotedCount != 1 || ov.VotesRecorded != 2 || ov.CandidateCount != 3 {
		t.Errorf("Unexpected overview counts: %+v", ov)
	}
	if ov.ParticipationPct != 50 {
		t.Errorf("Expected 50%% participation, got %v", ov.ParticipationPct)
	}
	if ov.Visibility.Phase != models.PhaseOpen {
		t.Errorf("Expected open phase, got %s", ov.Visibility.Phase)
	}
}
