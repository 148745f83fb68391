package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// MemoryGate is the process-local ConversionGate: one conversion slot per
// caller, rejecting rather than queueing concurrent requests. Deployments
// running several bridge instances should use the Redis-backed gate instead.
type MemoryGate struct {
	mu      sync.Mutex
	holders map[common.Address]time.Time
	now     func() time.Time
}

// NewMemoryGate creates an empty in-process gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		holders: make(map[common.Address]time.Time),
		now:     time.Now,
	}
}

// Enter claims the caller's slot until the returned release function is
// called or ttl elapses. The ttl guards against a crashed conversion pinning
// the slot forever.
func (g *MemoryGate) Enter(_ context.Context, caller common.Address, ttl time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for holder, deadline := range g.holders {
		if !now.Before(deadline) {
			delete(g.holders, holder)
		}
	}

	if _, held := g.holders[caller]; held {
		return nil, domain.ErrConversionInFlight
	}
	g.holders[caller] = now.Add(ttl)

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.holders, caller)
			g.mu.Unlock()
		})
	}
	return release, nil
}

// Compile-time interface check.
var _ domain.ConversionGate = (*MemoryGate)(nil)
