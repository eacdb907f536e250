// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

// TestConcurrentBallotSubmissions verifies that simultaneous ballots from
// different voters are all counted exactly once.
func TestConcurrentBallotSubmissions(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	votingHandler := NewVotingHandler(svc, cfg, testLogger)

	scope := testutil.CreateTestClub(t, conn, "Chess Club")
	ids := seedCandidates(t, conn, scope)

	numVoters := 20
	codes := make([]string, numVoters)
	for i := range codes {
		codes[i] = testutil.CreateTestVoter(t, conn, scope)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()

			president := ids["Ada"]
			if i%4 == 0 {
				president = ids["Grace"]
			}
			req := scoped(testutil.MakeRequest("POST", "/elections/x/ballots", models.CastBallotRequest{
				Selections: map[string]string{"President": president, "Treasurer": ids["Linus"]},
			}, voterHeaders(code)), scope)
			w := httptest.NewRecorder()
			votingHandler.CastBallot(w, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			} else {
				t.Errorf("Voter %d: expected 201, got %d: %s", i, w.Code, w.Body.String())
			}
		}(i, code)
	}
	wg.Wait()

	if got := successCount.Load(); got != int32(numVoters) {
		t.Errorf("Expected %d successful ballots, got %d", numVoters, got)
	}
	if n := testutil.CountRows(t, conn, "vote", scope); n != numVoters*2 {
		t.Errorf("Expected %d votes, got %d", numVoters*2, n)
	}

	tally, err := svc.Tally(t.Context(), scope)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if tally.TotalBallots != numVoters {
		t.Errorf("Expected %d ballots, got %d", numVoters, tally.TotalBallots)
	}
	president := tally.Positions["President"]
	if president.TotalVotes != numVoters || len(president.Winners) != 1 || president.Winners[0] != ids["Ada"] {
		t.Errorf("Unexpected President tally: %+v", president)
	}
}

// TestConcurrentDoubleVote fires the same voter's ballot many times at once;
// exactly one may be recorded.
func TestConcurrentDoubleVote(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	votingHandler := NewVotingHandler(svc, cfg, testLogger)

	scope := models.Primary()
	ids := seedCandidates(t, conn, scope)
	code := testutil.CreateTestVoter(t, conn, scope)

	attempts := 10
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Alternate choices so a lost update would be visible in the tally
			president := ids["Ada"]
			if i%2 == 1 {
				president = ids["Grace"]
			}
			req := scoped(testutil.MakeRequest("POST", "/elections/primary/ballots", models.CastBallotRequest{
				Selections: map[string]string{"President": president, "Treasurer": ids["Linus"]},
			}, voterHeaders(code)), scope)
			w := httptest.NewRecorder()
			votingHandler.CastBallot(w, req)

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 recorded ballot, got %d", created.Load())
	}
	if conflicts.Load() != int32(attempts-1) {
		t.Errorf("Expected %d conflicts, got %d", attempts-1, conflicts.Load())
	}
	if n := testutil.CountRows(t, conn, "vote", scope); n != 2 {
		t.Errorf("Expected 2 vote rows, got %d", n)
	}
}

// TestConcurrentSignIn makes sure racing first sign-ins of one identity
// end up with a single voter.
func TestConcurrentSignIn(t *testing.T) {
	conn, svc, cfg := setupTest(t)
	votingHandler := NewVotingHandler(svc, cfg, testLogger)
	scope := models.Primary()

	token := mintIDToken(t, cfg.IdentityTokenSecret, "user-1", "ada@campus.edu")

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := scoped(testutil.MakeRequest("POST", "/elections/primary/sign-in", models.SignInRequest{IDToken: token}, nil), scope)
			w := httptest.NewRecorder()
			votingHandler.SignIn(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
				return
			}
			var v models.Voter
			if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
				t.Errorf("Failed to decode voter: %v", err)
				return
			}

			mu.Lock()
			seen[v.Code] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 1 {
		t.Errorf("Expected a single voter code, got %d", len(seen))
	}
	if n := testutil.CountRows(t, conn, "voter", scope); n != 1 {
		t.Errorf("Expected 1 voter row, got %d", n)
	}
}
