package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// Analyzer inspects every configured fee-tier variant of the venue for a
// given input token, going through the cache when fresh and performing live
// lookups otherwise. The returned list follows the configured tier priority
// order, not the output ranking.
type Analyzer struct {
	venue        domain.ExchangeVenue
	quotes       *QuoteEngine
	cache        domain.VenueCache
	settlement   common.Address
	feeTiers     []uint32
	minLiquidity *big.Int
	logger       *slog.Logger

	now func() time.Time
}

// NewAnalyzer creates an Analyzer for routes from arbitrary input tokens
// into the settlement currency across the given fee tiers.
func NewAnalyzer(
	venue domain.ExchangeVenue,
	quotes *QuoteEngine,
	cache domain.VenueCache,
	settlement common.Address,
	feeTiers []uint32,
	minLiquidity *big.Int,
	logger *slog.Logger,
) *Analyzer {
	return &Analyzer{
		venue:        venue,
		quotes:       quotes,
		cache:        cache,
		settlement:   settlement,
		feeTiers:     feeTiers,
		minLiquidity: minLiquidity,
		logger:       logger.With(slog.String("component", "analyzer")),
		now:          time.Now,
	}
}

// AnalyzeAll inspects every configured fee tier for routes token → settlement
// currency. Tiers failing existence or liquidity are still returned, flagged
// accordingly, but are never viable candidates.
func (a *Analyzer) AnalyzeAll(ctx context.Context, token common.Address, amount *big.Int) ([]domain.PoolAnalysis, error) {
	return a.AnalyzeTiers(ctx, token, amount, a.feeTiers)
}

// AnalyzeTiers is AnalyzeAll restricted to an explicit tier list. Result
// ordering matches the tiers argument. Tiers are queried concurrently;
// per-tier failures are folded into the analysis rather than aborting the
// whole call.
func (a *Analyzer) AnalyzeTiers(ctx context.Context, token common.Address, amount *big.Int, tiers []uint32) ([]domain.PoolAnalysis, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("analyzer: no fee tiers configured")
	}

	results := make([]domain.PoolAnalysis, len(tiers))
	g, gctx := errgroup.WithContext(ctx)

	for i, tier := range tiers {
		g.Go(func() error {
			results[i] = a.analyzeTier(gctx, token, amount, tier)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// analyzeTier resolves venue metadata for one tier (cache-first) and quotes
// it when it passes the existence and liquidity filter.
func (a *Analyzer) analyzeTier(ctx context.Context, token common.Address, amount *big.Int, tier uint32) domain.PoolAnalysis {
	info, err := a.venueInfo(ctx, token, tier)
	if err != nil {
		a.logger.WarnContext(ctx, "venue lookup failed",
			slog.String("token", token.Hex()),
			slog.Uint64("fee_tier", uint64(tier)),
			slog.String("error", err.Error()),
		)
		return domain.PoolAnalysis{FeeTier: tier, QuoteError: err.Error()}
	}

	analysis := domain.PoolAnalysis{
		PoolAddress: info.PoolAddress,
		FeeTier:     tier,
		Exists:      info.Exists,
		Liquidity:   info.Liquidity,
	}

	if !info.Exists || info.Liquidity == nil || info.Liquidity.Cmp(a.minLiquidity) < 0 {
		return analysis
	}

	quote, err := a.quotes.Quote(ctx, token, a.settlement, tier, amount)
	if err != nil {
		analysis.QuoteError = err.Error()
		return analysis
	}

	analysis.ExpectedOutput = quote.AmountOut
	analysis.GasEstimate = quote.GasEstimate
	return analysis
}

// venueInfo returns cached metadata when fresh, otherwise performs a live
// lookup and repopulates the cache.
func (a *Analyzer) venueInfo(ctx context.Context, token common.Address, tier uint32) (domain.VenueInfo, error) {
	key := domain.NewVenueKey(token, a.settlement, tier)

	if hit := a.cache.Get(key); hit.Found && !hit.IsExpired {
		return hit.Info, nil
	}

	pool, exists, err := a.venue.PoolFor(ctx, token, a.settlement, tier)
	if err != nil {
		return domain.VenueInfo{}, fmt.Errorf("analyzer: pool lookup tier %d: %w", tier, err)
	}

	info := domain.VenueInfo{
		FeeTier:   tier,
		Exists:    exists,
		Liquidity: big.NewInt(0),
		QueriedAt: a.now(),
	}
	if exists {
		info.PoolAddress = pool
		liq, err := a.venue.LiquidityOf(ctx, pool)
		if err != nil {
			return domain.VenueInfo{}, fmt.Errorf("analyzer: liquidity of %s: %w", pool.Hex(), err)
		}
		info.Liquidity = liq
	}

	a.cache.Put(key, info)
	return info, nil
}

// MinLiquidity returns the configured liquidity threshold.
func (a *Analyzer) MinLiquidity() *big.Int {
	return a.minLiquidity
}

// FeeTiers returns the configured tier priority order.
func (a *Analyzer) FeeTiers() []uint32 {
	return a.feeTiers
}
