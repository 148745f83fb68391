package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLua deletes a gate key only if its value matches the holder's unique
// token, so one conversion cannot release a slot claimed by a later one.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Gate implements domain.ConversionGate across bridge instances using Redis
// SETNX with a TTL and a Lua-based conditional release. The TTL bounds how
// long a crashed conversion can keep its caller blocked.
type Gate struct {
	rdb       *redis.Client
	releaseSc *redis.Script
}

// NewGate creates a Gate backed by the given Client.
func NewGate(c *Client) *Gate {
	return &Gate{
		rdb:       c.Underlying(),
		releaseSc: redis.NewScript(releaseLua),
	}
}

func gateKey(caller common.Address) string {
	return "gate:conversion:" + strings.ToLower(caller.Hex())
}

// Enter claims the caller's conversion slot. On success it returns a release
// function that must be called when the conversion finishes; the release
// function is safe to call multiple times.
//
// It returns domain.ErrConversionInFlight when the caller already has a
// conversion in flight.
func (g *Gate) Enter(ctx context.Context, caller common.Address, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	key := gateKey(caller)

	ok, err := g.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: enter gate %s: %w", caller.Hex(), err)
	}
	if !ok {
		return nil, domain.ErrConversionInFlight
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Background context so release succeeds even when the conversion's
		// context is already cancelled.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = g.releaseSc.Run(relCtx, g.rdb, []string{key}, token).Err()
	}

	return release, nil
}

// Compile-time interface check.
var _ domain.ConversionGate = (*Gate)(nil)
