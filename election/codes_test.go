package election

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/campus-ballot/auth"
	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

func TestIssueCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := models.Primary()

	voters, err := f.svc.IssueCodes(ctx, scope, 25)
	require.NoError(t, err)
	require.Len(t, voters, 25)

	seen := map[string]bool{}
	for _, v := range voters {
		assert.NoError(t, auth.ValidateCodeFormat(v.Code))
		assert.False(t, v.HasVoted)
		assert.Equal(t, scope, v.Scope)
		assert.False(t, seen[v.Code], "duplicate code %s", v.Code)
		seen[v.Code] = true
	}
	assert.Equal(t, 25, testutil.CountRows(t, f.db, "voter", scope))

	entries, err := f.svc.AuditLog(ctx, AuditFilter{Scope: scope})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionGenerateCodes, entries[0].ActionType)
	assert.Equal(t, "Generated 25 voter codes", entries[0].Details)
}

func TestIssueCodesValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		scope   models.Scope
		count   int
		wantErr error
	}{
		{"zero count", models.Primary(), 0, ErrValidation},
		{"negative count", models.Primary(), -3, ErrValidation},
		{"above batch limit", models.Primary(), 51, ErrValidation},
		{"invalid scope", models.Scope{}, 5, ErrValidation},
		{"unknown club", models.ClubScope("missing"), 5, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.IssueCodes(ctx, tt.scope, tt.count)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 0, testutil.CountRows(t, f.db, "voter", models.Primary()))
}

func TestIssueCodesRetriesCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := models.Primary()

	// Every other draw repeats the previous code
	codes := []string{"aaaaaa", "aaaaaa", "bbbbbb", "bbbbbb", "cccccc"}
	var mu sync.Mutex
	f.svc.codes.generate = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	voters, err := f.svc.IssueCodes(ctx, scope, 3)
	require.NoError(t, err)
	got := []string{voters[0].Code, voters[1].Code, voters[2].Code}
	assert.Equal(t, []string{"aaaaaa", "bbbbbb", "cccccc"}, got)
}

func TestIssueCodesIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := models.Primary()

	f.svc.codes.generate = func() (string, error) { return "sameOne", nil }

	_, err := f.svc.IssueCodes(ctx, scope, 3)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, testutil.CountRows(t, f.db, "voter", scope))
}

func TestIssueCodesSameCodeInTwoScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	club := testutil.CreateTestClub(t, f.db, "Robotics")

	f.svc.codes.generate = func() (string, error) { return "shared", nil }

	_, err := f.svc.IssueCodes(ctx, models.Primary(), 1)
	require.NoError(t, err)
	_, err = f.svc.IssueCodes(ctx, club, 1)
	require.NoError(t, err)

	primaryVoter, err := f.svc.Login(ctx, models.Primary(), "shared")
	require.NoError(t, err)
	clubVoter, err := f.svc.Login(ctx, club, "shared")
	require.NoError(t, err)
	assert.NotEqual(t, primaryVoter.ID, clubVoter.ID)
}

func TestIssueCodesConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope := models.Primary()

	const batches, perBatch = 8, 25
	results := make([][]models.Voter, batches)

	var g errgroup.Group
	for i := range batches {
		g.Go(func() error {
			voters, err := f.svc.IssueCodes(ctx, scope, perBatch)
			results[i] = voters
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, batch := range results {
		require.Len(t, batch, perBatch)
		for _, v := range batch {
			assert.False(t, seen[v.Code], "duplicate code %s", v.Code)
			seen[v.Code] = true
		}
	}
	assert.Len(t, seen, batches*perBatch)
	assert.Equal(t, batches*perBatch, testutil.CountRows(t, f.db, "voter", scope))
}
