package bridge

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// countingVenue counts live lookups so cache hits and refreshes can be told
// apart.
type countingVenue struct {
	*fakeVenue
	poolLookups atomic.Int64
}

func (c *countingVenue) PoolFor(ctx context.Context, tokenA, tokenB common.Address, feeTier uint32) (common.Address, bool, error) {
	c.poolLookups.Add(1)
	return c.fakeVenue.PoolFor(ctx, tokenA, tokenB, feeTier)
}

func TestAnalyzerRefreshesExpiredEntries(t *testing.T) {
	venue := &countingVenue{fakeVenue: healthyVenue()}
	cache := NewMemoryVenueCache(time.Minute)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	a := NewAnalyzer(venue, NewQuoteEngine(venue), cache, testSettlement, []uint32{3000}, big.NewInt(1000), testLogger())
	a.now = cache.now

	amount := big.NewInt(5_000)

	// First analysis has nothing cached and must go to the venue.
	_, err := a.AnalyzeAll(context.Background(), testToken, amount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), venue.poolLookups.Load())

	// A fresh entry is served from the cache.
	cache.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err = a.AnalyzeAll(context.Background(), testToken, amount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), venue.poolLookups.Load())

	// Past the TTL the entry is only a hint; analysis must look up live again.
	cache.now = func() time.Time { return base.Add(90 * time.Second) }
	a.now = cache.now

	key := domain.NewVenueKey(testToken, testSettlement, 3000)
	hit := cache.Get(key)
	require.True(t, hit.Found)
	assert.True(t, hit.IsExpired)
	assert.Equal(t, int64(90), hit.AgeSeconds)

	_, err = a.AnalyzeAll(context.Background(), testToken, amount)
	require.NoError(t, err)
	assert.Equal(t, int64(2), venue.poolLookups.Load())

	// The refresh repopulated the cache with a current timestamp.
	hit = cache.Get(key)
	require.True(t, hit.Found)
	assert.False(t, hit.IsExpired)
	assert.Zero(t, hit.AgeSeconds)
}

func TestEstimateIdempotent(t *testing.T) {
	venue := &countingVenue{fakeVenue: healthyVenue()}
	cfg := testConfig()
	b := New(cfg, venue, &fakeTokens{allowance: big.NewInt(0)}, &fakeLedger{}, NewMemoryVenueCache(cfg.CacheTTL), NewMemoryGate(), testLogger())

	first := b.Estimate(context.Background(), testToken, big.NewInt(5_000), 0)
	afterFirst := venue.poolLookups.Load()
	second := b.Estimate(context.Background(), testToken, big.NewInt(5_000), 0)

	require.True(t, first.IsValid, "error: %s", first.ErrorMessage)
	assert.Equal(t, first, second)
	// The second call was served entirely from still-fresh cache entries.
	assert.Equal(t, afterFirst, venue.poolLookups.Load())
}
