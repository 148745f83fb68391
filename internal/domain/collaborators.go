package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// QuoteResult carries the venue's expected output for an exact-input quote.
type QuoteResult struct {
	AmountOut   *big.Int
	GasEstimate uint64
}

// SwapParams describes a single-hop exact-input swap. MinAmountOut is a hard
// floor: the venue reverts the whole call when the realized output falls
// below it.
type SwapParams struct {
	TokenIn      common.Address
	TokenOut     common.Address
	FeeTier      uint32
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Recipient    common.Address
}

// SwapResult is the outcome of a settled swap transaction.
type SwapResult struct {
	AmountOut *big.Int
	TxHash    common.Hash
}

// ExchangeVenue is the external liquidity venue: pool discovery, liquidity
// reads, quotes, and swap execution.
type ExchangeVenue interface {
	// PoolFor resolves the pool for a pair at a fee tier. The second return
	// is false when no pool exists.
	PoolFor(ctx context.Context, tokenA, tokenB common.Address, feeTier uint32) (common.Address, bool, error)
	// LiquidityOf reads the pool's active liquidity.
	LiquidityOf(ctx context.Context, pool common.Address) (*big.Int, error)
	// Quote computes the expected output for an exact-input single-hop swap.
	// It is a pure function of venue state and amount.
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) (QuoteResult, error)
	// Swap submits the swap and waits for its chain-level outcome.
	Swap(ctx context.Context, p SwapParams) (SwapResult, error)
}

// TokenLedger is the ERC-20 surface the bridge needs.
type TokenLedger interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	// Approve submits an allowance update and waits for it to finalize.
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// Contribution is the action forwarded to the settlement ledger after a
// successful swap.
type Contribution struct {
	CampaignID  *big.Int
	ProjectID   *big.Int
	Amount      *big.Int
	Beneficiary common.Address
	BypassCode  [32]byte
}

// SettlementLedger records contributions in the external funding/voting
// system. It fails when the target campaign is inactive or the project
// unapproved.
type SettlementLedger interface {
	Contribute(ctx context.Context, c Contribution) (string, error)
}

// ConversionGate serializes conversions per caller: a second conversion for
// the same caller is rejected while one is in flight.
type ConversionGate interface {
	// Enter claims the caller's slot and returns a release function, or
	// ErrConversionInFlight when the slot is taken.
	Enter(ctx context.Context, caller common.Address, ttl time.Duration) (func(), error)
}

// SignalBus publishes and subscribes to lifecycle events (conversion
// submitted/settled/failed, operational transitions).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter bounds how often a keyed action may run inside a sliding
// window. Allow counts the request when it is permitted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
