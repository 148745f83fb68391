package bridge

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

func TestMemoryVenueCacheMiss(t *testing.T) {
	c := NewMemoryVenueCache(time.Minute)

	hit := c.Get(domain.NewVenueKey(testToken, testSettlement, 3000))

	assert.False(t, hit.Found)
	assert.True(t, hit.IsExpired)
	assert.Equal(t, domain.AgeUnknown, hit.AgeSeconds)
}

func TestMemoryVenueCachePutGet(t *testing.T) {
	c := NewMemoryVenueCache(time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	key := domain.NewVenueKey(testToken, testSettlement, 3000)
	c.Put(key, domain.VenueInfo{
		PoolAddress: testPool,
		FeeTier:     3000,
		Exists:      true,
		Liquidity:   big.NewInt(42),
	})

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	hit := c.Get(key)

	require.True(t, hit.Found)
	assert.False(t, hit.IsExpired)
	assert.Equal(t, int64(30), hit.AgeSeconds)
	assert.Equal(t, testPool, hit.Info.PoolAddress)
	assert.Equal(t, big.NewInt(42), hit.Info.Liquidity)
}

func TestMemoryVenueCacheExpiredEntryIsHint(t *testing.T) {
	c := NewMemoryVenueCache(time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	key := domain.NewVenueKey(testToken, testSettlement, 500)
	c.Put(key, domain.VenueInfo{Exists: true})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	hit := c.Get(key)

	// Still returned, but flagged expired.
	assert.True(t, hit.Found)
	assert.True(t, hit.IsExpired)
	assert.Equal(t, int64(120), hit.AgeSeconds)
}

func TestMemoryVenueCacheLastWriterWins(t *testing.T) {
	c := NewMemoryVenueCache(time.Minute)

	key := domain.NewVenueKey(testToken, testSettlement, 3000)
	c.Put(key, domain.VenueInfo{Liquidity: big.NewInt(1)})
	c.Put(key, domain.VenueInfo{Liquidity: big.NewInt(2)})

	assert.Equal(t, big.NewInt(2), c.Get(key).Info.Liquidity)
}

func TestVenueKeyCanonicalOrder(t *testing.T) {
	a := common.HexToAddress("0x000000000000000000000000000000000000000a")
	b := common.HexToAddress("0x000000000000000000000000000000000000000b")

	assert.Equal(t, domain.NewVenueKey(a, b, 3000), domain.NewVenueKey(b, a, 3000))
	assert.NotEqual(t, domain.NewVenueKey(a, b, 3000), domain.NewVenueKey(a, b, 500))
}
