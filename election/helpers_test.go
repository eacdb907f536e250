package election

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/models"
	"github.com/danielhkuo/campus-ballot/testutil"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// testClock advances one second per reading so audit entries order
// deterministically.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

// countingCache is an in-memory TallyCache recording its calls.
type countingCache struct {
	mu          sync.Mutex
	tallies     map[string]models.Tally
	gets, hits  int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{tallies: map[string]models.Tally{}}
}

func (c *countingCache) Get(_ context.Context, scope models.Scope) (models.Tally, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	t, ok := c.tallies[scope.Key()]
	if ok {
		c.hits++
	}
	return t, ok, nil
}

func (c *countingCache) Set(_ context.Context, t models.Tally) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tallies[t.Scope.Key()] = t
	return nil
}

func (c *countingCache) Invalidate(_ context.Context, scope models.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	delete(c.tallies, scope.Key())
	return nil
}

type fixture struct {
	svc   *Service
	db    *sql.DB
	clock *testClock
	cache *countingCache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	clock := newTestClock()
	cache := newCountingCache()
	svc := NewService(conn, zap.NewNop(), Options{
		MaxCodesPerBatch:   50,
		CodeInsertAttempts: 4,
		RequestTimeout:     5 * time.Second,
		Cache:              cache,
		Now:                clock.Now,
	})
	return fixture{svc: svc, db: conn, clock: clock, cache: cache}
}

// seedBallot adds two positions with two candidates each to scope.
func seedBallot(t *testing.T, conn *sql.DB, scope models.Scope) map[string][]string {
	t.Helper()
	return map[string][]string{
		"President": {
			testutil.AddTestCandidate(t, conn, scope, "Ada", "President"),
			testutil.AddTestCandidate(t, conn, scope, "Grace", "President"),
		},
		"Treasurer": {
			testutil.AddTestCandidate(t, conn, scope, "Linus", "Treasurer"),
			testutil.AddTestCandidate(t, conn, scope, "Ken", "Treasurer"),
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
