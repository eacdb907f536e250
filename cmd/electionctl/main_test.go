package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/report"
)

const testSalt = "test-admin-salt"

// run executes electionctl against dbPath and returns its output.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"-d", dbPath, "-t", "sqlite", "--admin-salt", testSalt}, args...))
	err := root.Execute()
	return out.String(), err
}

func testDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "ballot.db")
}

func TestAdminKey(t *testing.T) {
	out, err := run(t, "", "admin-key", "--scope", "club:chess")
	require.NoError(t, err)
	assert.Equal(t, auth.GenerateAdminKey("club:chess", testSalt), strings.TrimSpace(out))

	_, err = run(t, "", "admin-key", "--scope", "everyone")
	assert.Error(t, err)
}

func TestIssueCodes(t *testing.T) {
	dbPath := testDB(t)

	out, err := run(t, dbPath, "issue-codes", "-n", "5")
	require.NoError(t, err)

	codes := strings.Fields(out)
	require.Len(t, codes, 5)
	for _, c := range codes {
		assert.NoError(t, auth.ValidateCodeFormat(c), c)
	}

	_, err = run(t, dbPath, "issue-codes", "-n", "0")
	assert.Error(t, err)

	out, err = run(t, dbPath, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "GENERATE_CODES")
	assert.Contains(t, out, "Generated 5 voter codes")
}

func TestClubLifecycle(t *testing.T) {
	dbPath := testDB(t)

	out, err := run(t, dbPath, "create-club", "Chess Club")
	require.NoError(t, err)
	assert.Contains(t, out, `Created club "Chess Club"`)

	var scope, key string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "Scope:"); ok {
			scope = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "Admin key:"); ok {
			key = strings.TrimSpace(v)
		}
	}
	require.True(t, strings.HasPrefix(scope, "club:"), out)
	assert.NoError(t, auth.ValidateAdminKey(scope, key, testSalt))

	out, err = run(t, dbPath, "config", "--scope", scope, "--results-public", "--title", "Board 2026")
	require.NoError(t, err)
	assert.Contains(t, out, `"election_title": "Board 2026"`)
	assert.Contains(t, out, `"is_results_public": true`)

	// No flags prints without changing anything
	out, err = run(t, dbPath, "config", "--scope", scope)
	require.NoError(t, err)
	assert.Contains(t, out, `"phase": "open"`)

	_, err = run(t, dbPath, "config", "--scope", scope, "--start", "tomorrow")
	assert.Error(t, err)

	_, err = run(t, dbPath, "delete-club", strings.TrimPrefix(scope, "club:"))
	require.NoError(t, err)

	_, err = run(t, dbPath, "config", "--scope", scope)
	assert.Error(t, err)
}

func TestTally(t *testing.T) {
	dbPath := testDB(t)

	out, err := run(t, dbPath, "tally")
	require.NoError(t, err)
	assert.Contains(t, out, "Ballots cast: 0")

	xlsx := filepath.Join(t.TempDir(), "results.xlsx")
	out, err = run(t, dbPath, "tally", "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, xlsx)

	data, err := os.ReadFile(xlsx)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{report.SummarySheet, report.ResultsSheet}, f.GetSheetList())

	out, err = run(t, dbPath, "audit", "--scope", "primary")
	require.NoError(t, err)
	assert.Contains(t, out, "DOWNLOAD_REPORT")
}

func TestMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := run(t, "", "tally")
	assert.Error(t, err)
}
