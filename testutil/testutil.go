// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/models"
)

// TestPostgresEnv names a PostgreSQL URL to test against instead of a
// throwaway SQLite file.
const TestPostgresEnv = "TEST_DATABASE_URL"

// SetupTestDB returns an empty database with the full schema. The
// connection is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	var (
		conn *sql.DB
		err  error
	)
	if url := os.Getenv(TestPostgresEnv); url != "" {
		conn, err = db.Open(ctx, db.DriverPostgres, url)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		// Clean up tables before each test
		_, err = conn.ExecContext(ctx, `
			DROP TABLE IF EXISTS audit_log CASCADE;
			DROP TABLE IF EXISTS candidate_like CASCADE;
			DROP TABLE IF EXISTS vote CASCADE;
			DROP TABLE IF EXISTS candidate CASCADE;
			DROP TABLE IF EXISTS voter CASCADE;
			DROP TABLE IF EXISTS election_config CASCADE;
			DROP TABLE IF EXISTS club CASCADE;
		`)
		if err != nil {
			t.Fatalf("Failed to clean database: %v", err)
		}
	} else {
		path := filepath.Join(t.TempDir(), "election.db")
		conn, err = db.Open(ctx, db.DriverSQLite, path)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                3318,
		DatabaseType:        db.DriverSQLite,
		AdminKeySalt:        "test-admin-salt",
		IdentityTokenSecret: "test-identity-secret",
		AllowedEmailDomain:  "campus.edu",
		RequestTimeout:      5 * time.Second,
		MaxCodesPerBatch:    100,
		CodeInsertAttempts:  8,
	}
}

// AdminKey returns the admin key that administers scope.
func AdminKey(cfg cliparse.Config, scope models.Scope) string {
	return auth.GenerateAdminKey(scope.Key(), cfg.AdminKeySalt)
}

// CreateTestClub inserts a club and its default config, returning its scope.
func CreateTestClub(t *testing.T, conn *sql.DB, name string) models.Scope {
	t.Helper()

	id := auth.NewID()
	now := time.Now().UTC()
	if _, err := conn.Exec(`INSERT INTO club (id, name, created_at) VALUES ($1, $2, $3)`, id, name, now); err != nil {
		t.Fatalf("Failed to create test club: %v", err)
	}
	scope := models.ClubScope(id)
	_, err := conn.Exec(`
		INSERT INTO election_config (scope, org_name, election_title, is_results_public, is_ballot_hidden, updated_at)
		VALUES ($1, '', $2, FALSE, FALSE, $3)
	`, scope.Key(), name, now)
	if err != nil {
		t.Fatalf("Failed to create test club config: %v", err)
	}
	return scope
}

// SetFlags overwrites the ballot and results flags and the start date.
func SetFlags(t *testing.T, conn *sql.DB, scope models.Scope, resultsPublic, ballotHidden bool, startDate *time.Time) {
	t.Helper()

	var start sql.NullTime
	if startDate != nil {
		start = sql.NullTime{Time: startDate.UTC(), Valid: true}
	}
	_, err := conn.Exec(`
		UPDATE election_config
		SET is_results_public = $1, is_ballot_hidden = $2, start_date = $3
		WHERE scope = $4
	`, resultsPublic, ballotHidden, start, scope.Key())
	if err != nil {
		t.Fatalf("Failed to set election flags: %v", err)
	}
}

// CreateTestVoter registers a fresh voter and returns its code.
func CreateTestVoter(t *testing.T, conn *sql.DB, scope models.Scope) string {
	t.Helper()

	code, err := auth.GenerateCode()
	if err != nil {
		t.Fatalf("Failed to generate voter code: %v", err)
	}
	_, err = conn.Exec(`
		INSERT INTO voter (id, scope, code, has_voted, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
	`, auth.NewID(), scope.Key(), code, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}
	return code
}

// VoterID looks up the id behind a voter code.
func VoterID(t *testing.T, conn *sql.DB, scope models.Scope, code string) string {
	t.Helper()

	var id string
	if err := conn.QueryRow(`SELECT id FROM voter WHERE scope = $1 AND code = $2`, scope.Key(), code).Scan(&id); err != nil {
		t.Fatalf("Failed to find test voter: %v", err)
	}
	return id
}

// AddTestCandidate adds a candidate and returns its ID
func AddTestCandidate(t *testing.T, conn *sql.DB, scope models.Scope, name, position string) string {
	t.Helper()

	id := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO candidate (id, scope, name, manifesto, image_ref, position, created_at)
		VALUES ($1, $2, $3, 'Test manifesto', '', $4, $5)
	`, id, scope.Key(), name, position, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}
	return id
}

// CastTestBallot marks the voter as voted and stores one vote per position.
func CastTestBallot(t *testing.T, conn *sql.DB, scope models.Scope, code string, selections map[string]string) {
	t.Helper()

	if _, err := conn.Exec(`UPDATE voter SET has_voted = TRUE WHERE scope = $1 AND code = $2`, scope.Key(), code); err != nil {
		t.Fatalf("Failed to mark test voter: %v", err)
	}
	for position, candidateID := range selections {
		_, err := conn.Exec(`
			INSERT INTO vote (scope, voter_code, position, candidate_id, cast_at)
			VALUES ($1, $2, $3, $4, $5)
		`, scope.Key(), code, position, candidateID, time.Now().UTC())
		if err != nil {
			t.Fatalf("Failed to create test vote: %v", err)
		}
	}
}

// CountRows returns the number of rows in table matching the scope.
func CountRows(t *testing.T, conn *sql.DB, table string, scope models.Scope) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE scope = $1`, scope.Key()).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s rows: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
