package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

func TestMemoryGateSerializesPerCaller(t *testing.T) {
	g := NewMemoryGate()
	caller := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	release, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)

	_, err = g.Enter(context.Background(), caller, time.Minute)
	assert.ErrorIs(t, err, domain.ErrConversionInFlight)

	release()
	release2, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)
	release2()
}

func TestMemoryGateIndependentCallers(t *testing.T) {
	g := NewMemoryGate()
	a := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	releaseA, err := g.Enter(context.Background(), a, time.Minute)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := g.Enter(context.Background(), b, time.Minute)
	require.NoError(t, err)
	releaseB()
}

func TestMemoryGateTTLExpiry(t *testing.T) {
	g := NewMemoryGate()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	caller := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	// Claimed but never released, as a crashed conversion would leave it.
	_, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)

	_, err = g.Enter(context.Background(), caller, time.Minute)
	assert.ErrorIs(t, err, domain.ErrConversionInFlight)

	g.now = func() time.Time { return base.Add(2 * time.Minute) }
	release, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)
	release()
}

func TestMemoryGatePurgesExpiredHolders(t *testing.T) {
	g := NewMemoryGate()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	// Crashed conversions for other callers leave unreleased claims behind.
	for i := byte(1); i <= 10; i++ {
		addr := common.BytesToAddress([]byte{i})
		_, err := g.Enter(context.Background(), addr, time.Minute)
		require.NoError(t, err)
	}
	assert.Len(t, g.holders, 10)

	// A later entry by an unrelated caller sweeps every expired claim out.
	g.now = func() time.Time { return base.Add(2 * time.Minute) }
	release, err := g.Enter(context.Background(), common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"), time.Minute)
	require.NoError(t, err)
	assert.Len(t, g.holders, 1)
	release()
	assert.Empty(t, g.holders)
}

func TestMemoryGateReleaseIdempotent(t *testing.T) {
	g := NewMemoryGate()
	caller := common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")

	release, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)

	release()
	release() // second call is a no-op

	release2, err := g.Enter(context.Background(), caller, time.Minute)
	require.NoError(t, err)
	release2()
}
