// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

var testLogger = zap.NewNop()

// setupTest returns a fresh database, a service over it and the test config.
func setupTest(t *testing.T) (*sql.DB, *election.Service, cliparse.Config) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	svc := election.NewService(conn, testLogger, election.Options{
		MaxCodesPerBatch:   cfg.MaxCodesPerBatch,
		CodeInsertAttempts: cfg.CodeInsertAttempts,
		RequestTimeout:     cfg.RequestTimeout,
	})
	return conn, svc, cfg
}

// scoped sets the {scope} path value the router would normally fill in.
func scoped(req *http.Request, scope models.Scope) *http.Request {
	req.SetPathValue("scope", scope.Key())
	return req
}

func adminHeaders(cfg cliparse.Config, scope models.Scope) map[string]string {
	return map[string]string{HeaderAdminKey: testutil.AdminKey(cfg, scope)}
}

func voterHeaders(code string) map[string]string {
	return map[string]string{HeaderVoterCode: code}
}

// mintIDToken signs an identity token the way the sign-in bridge does.
func mintIDToken(t *testing.T, secret, subject, email string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign identity token: %v", err)
	}
	return token
}

// seedCandidates adds a two-position ballot and returns candidate IDs by name.
func seedCandidates(t *testing.T, conn *sql.DB, scope models.Scope) map[string]string {
	t.Helper()

	return map[string]string{
		"Ada":   testutil.AddTestCandidate(t, conn, scope, "Ada", "President"),
		"Grace": testutil.AddTestCandidate(t, conn, scope, "Grace", "President"),
		"Linus": testutil.AddTestCandidate(t, conn, scope, "Linus", "Treasurer"),
	}
}
