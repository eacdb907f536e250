// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/campus-ballot/handlers"
	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

// TestFullElectionWorkflow drives a club election end to end:
// 1. Create club
// 2. Configure and add candidates
// 3. Issue codes
// 4. Voters log in, vote and like
// 5. Close voting and publish results
// 6. Verify results and audit trail
// 7. Delete the club
func TestFullElectionWorkflow(t *testing.T) {
	mux := newTestRouter(t)
	cfg := testutil.GetTestConfig()
	primaryKey := map[string]string{handlers.HeaderAdminKey: testutil.AdminKey(cfg, models.Primary())}

	do := func(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest(method, path, body, headers))
		return w
	}

	// Step 1: Create a club
	w := do("POST", "/clubs", models.CreateClubRequest{Name: "Robotics"}, primaryKey)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 1 - Create club failed: %d - %s", w.Code, w.Body.String())
	}
	var created models.CreateClubResponse
	testutil.AssertJSON(t, w, &created)
	base := "/elections/" + models.ClubScope(created.Club.ID).Key()
	clubKey := map[string]string{handlers.HeaderAdminKey: created.AdminKey}
	t.Logf("Step 1 - Created club: %s", created.Club.ID)

	// Step 2: Configure and add candidates
	w = do("PATCH", base+"/config", map[string]any{"org_name": "Robotics", "election_title": "Officers 2026"}, clubKey)
	testutil.AssertStatus(t, w, http.StatusOK)

	candidateIDs := map[string]string{}
	for _, c := range []models.AddCandidateRequest{
		{Name: "Ada", Position: "Captain", Manifesto: "Faster robots"},
		{Name: "Grace", Position: "Captain", Manifesto: "Smarter robots"},
		{Name: "Linus", Position: "Treasurer", Manifesto: "Balanced books"},
	} {
		w = do("POST", base+"/candidates", c, clubKey)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 2 - Add candidate %s failed: %d - %s", c.Name, w.Code, w.Body.String())
		}
		var cand models.Candidate
		testutil.AssertJSON(t, w, &cand)
		candidateIDs[c.Name] = cand.ID
	}

	// Step 3: Issue codes
	w = do("POST", base+"/codes", models.IssueCodesRequest{Count: 4}, clubKey)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 3 - Issue codes failed: %d - %s", w.Code, w.Body.String())
	}
	var issued models.IssueCodesResponse
	testutil.AssertJSON(t, w, &issued)
	if len(issued.Voters) != 4 {
		t.Fatalf("Step 3 - Expected 4 codes, got %d", len(issued.Voters))
	}

	// Step 4: Three voters vote, the fourth waits too long
	picks := []string{"Ada", "Ada", "Grace"}
	for i, pick := range picks {
		code := issued.Voters[i].Code
		voter := map[string]string{handlers.HeaderVoterCode: code}

		w = do("POST", base+"/login", models.LoginRequest{Code: code}, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		w = do("GET", base+"/ballot", nil, voter)
		testutil.AssertStatus(t, w, http.StatusOK)

		w = do("POST", base+"/ballots", models.CastBallotRequest{Selections: map[string]string{
			"Captain":   candidateIDs[pick],
			"Treasurer": candidateIDs["Linus"],
		}}, voter)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 4 - Voter %d ballot failed: %d - %s", i, w.Code, w.Body.String())
		}

		w = do("POST", base+"/candidates/"+candidateIDs["Linus"]+"/like", nil, voter)
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	// Results stay sealed while hidden
	testutil.AssertStatus(t, do("GET", base+"/results", nil, nil), http.StatusForbidden)

	// Step 5: Close voting and publish results
	w = do("PATCH", base+"/config", map[string]any{"is_ballot_hidden": true, "is_results_public": true}, clubKey)
	testutil.AssertStatus(t, w, http.StatusOK)

	late := map[string]string{handlers.HeaderVoterCode: issued.Voters[3].Code}
	w = do("POST", base+"/ballots", models.CastBallotRequest{Selections: map[string]string{
		"Captain":   candidateIDs["Grace"],
		"Treasurer": candidateIDs["Linus"],
	}}, late)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	// Step 6: Verify results
	w = do("GET", base+"/results", nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var tally models.Tally
	testutil.AssertJSON(t, w, &tally)
	if tally.TotalBallots != 3 {
		t.Errorf("Step 6 - Expected 3 ballots, got %d", tally.TotalBallots)
	}
	captain := tally.Positions["Captain"]
	if len(captain.Winners) != 1 || captain.Winners[0] != candidateIDs["Ada"] {
		t.Errorf("Step 6 - Expected Ada to win Captain, got %v", captain.Winners)
	}

	w = do("GET", base+"/candidates", nil, nil)
	var candidates []models.Candidate
	testutil.AssertJSON(t, w, &candidates)
	for _, c := range candidates {
		if c.ID == candidateIDs["Linus"] && c.LikeCount != 3 {
			t.Errorf("Step 6 - Expected 3 likes for Linus, got %d", c.LikeCount)
		}
	}

	w = do("GET", "/audit-log?scope="+models.ClubScope(created.Club.ID).Key(), nil, primaryKey)
	testutil.AssertStatus(t, w, http.StatusOK)
	var entries []models.AuditLogEntry
	testutil.AssertJSON(t, w, &entries)
	actions := map[string]int{}
	for _, e := range entries {
		actions[e.ActionType]++
	}
	for action, want := range map[string]int{
		models.ActionCreateClub:     1,
		models.ActionUpdateSettings: 1,
		models.ActionAddCandidate:   3,
		models.ActionGenerateCodes:  1,
		models.ActionToggleBallot:   1,
		models.ActionToggleResults:  1,
	} {
		if actions[action] != want {
			t.Errorf("Step 6 - Expected %d %s entries, got %d", want, action, actions[action])
		}
	}

	// Step 7: Delete the club
	testutil.AssertStatus(t, do("DELETE", "/clubs/"+created.Club.ID, nil, primaryKey), http.StatusConflict)
	testutil.AssertStatus(t, do("DELETE", "/clubs/"+created.Club.ID+"?force=true", nil, primaryKey), http.StatusNoContent)
	testutil.AssertStatus(t, do("GET", base, nil, nil), http.StatusNotFound)
}
