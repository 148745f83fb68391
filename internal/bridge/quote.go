package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// QuoteEngine computes expected swap outputs. It is a pure function of venue
// state and amount; callers must invoke it fresh at execution time because a
// quote computed for display can go stale between user confirmation and
// submission.
type QuoteEngine struct {
	venue domain.ExchangeVenue
}

// NewQuoteEngine creates a QuoteEngine on top of the given venue.
func NewQuoteEngine(venue domain.ExchangeVenue) *QuoteEngine {
	return &QuoteEngine{venue: venue}
}

// Quote returns the expected output for swapping amountIn of tokenIn into
// tokenOut at the given fee tier. Transient venue failures are reported as
// domain.ErrQuoteUnavailable.
func (q *QuoteEngine) Quote(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) (domain.QuoteResult, error) {
	res, err := q.venue.Quote(ctx, tokenIn, tokenOut, feeTier, amountIn)
	if err != nil {
		return domain.QuoteResult{}, fmt.Errorf("%w: tier %d: %v", domain.ErrQuoteUnavailable, feeTier, err)
	}
	if res.AmountOut == nil || res.AmountOut.Sign() <= 0 {
		return domain.QuoteResult{}, fmt.Errorf("%w: tier %d returned empty quote", domain.ErrQuoteUnavailable, feeTier)
	}
	return res, nil
}
