package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// noViablePoolMessage is the estimate error surfaced to UIs when route
// selection yields nothing.
const noViablePoolMessage = "No viable pool"

// defaultGateTTL bounds how long a crashed conversion can pin a caller's
// slot.
const defaultGateTTL = 5 * time.Minute

// Config is the immutable per-deployment bridge configuration. Mutation
// requires an administrative restart; the runtime never changes it.
type Config struct {
	// Wallet is the bridge's executing address: it holds the input tokens,
	// grants allowance to the router, and receives swap proceeds.
	Wallet common.Address
	// Router is the venue contract that spends the input token during a
	// swap, and therefore the allowance target.
	Router common.Address
	// SettlementToken is the canonical settlement currency every route
	// converges on.
	SettlementToken common.Address
	// ProbeToken is the pair probed for the operational check.
	ProbeToken common.Address
	// FeeTiers is the ordered tier priority list.
	FeeTiers []uint32
	// SlippageBps is the slippage tolerance in basis points, [0, 10000).
	SlippageBps uint32
	// MinLiquidity is the minimum pool liquidity a candidate must report.
	MinLiquidity *big.Int
	// CacheTTL bounds how long venue metadata may be trusted.
	CacheTTL time.Duration
	// ApproveMultiplier scales allowance top-ups (amount * multiplier) to
	// amortize repeat conversions. It is configurable rather than hard-coded
	// because the standing allowance it grants is security-relevant.
	ApproveMultiplier int64
}

// Bridge orchestrates the public conversion operations on top of the
// analyzer, selector, and health monitor. Read paths are safe for concurrent
// use; ConvertAndForward is serialized per caller through the gate.
type Bridge struct {
	cfg      Config
	venue    domain.ExchangeVenue
	tokens   domain.TokenLedger
	ledger   domain.SettlementLedger
	cache    domain.VenueCache
	analyzer *Analyzer
	selector *RouteSelector
	health   *HealthMonitor
	gate     domain.ConversionGate
	logger   *slog.Logger
}

// New wires a Bridge from its collaborators. The cache is the only shared
// mutable state; everything else is immutable configuration or
// per-request-local.
func New(
	cfg Config,
	venue domain.ExchangeVenue,
	tokens domain.TokenLedger,
	ledger domain.SettlementLedger,
	cache domain.VenueCache,
	gate domain.ConversionGate,
	logger *slog.Logger,
) *Bridge {
	quotes := NewQuoteEngine(venue)
	analyzer := NewAnalyzer(venue, quotes, cache, cfg.SettlementToken, cfg.FeeTiers, cfg.MinLiquidity, logger)
	selector := NewRouteSelector(cfg.MinLiquidity)

	b := &Bridge{
		cfg:      cfg,
		venue:    venue,
		tokens:   tokens,
		ledger:   ledger,
		cache:    cache,
		analyzer: analyzer,
		selector: selector,
		gate:     gate,
		logger:   logger.With(slog.String("component", "bridge")),
	}
	b.health = NewHealthMonitor(analyzer, cfg.ProbeToken, b.configProblems)
	return b
}

// Configuration returns the deployment configuration.
func (b *Bridge) Configuration() Config {
	return b.cfg
}

// configProblems lists configuration fields that are empty or defaulted. An
// empty result means the configuration is complete.
func (b *Bridge) configProblems() []string {
	var problems []string
	zero := common.Address{}
	if b.cfg.Wallet == zero {
		problems = append(problems, "wallet address is unset")
	}
	if b.cfg.Router == zero {
		problems = append(problems, "router address is unset")
	}
	if b.cfg.SettlementToken == zero {
		problems = append(problems, "settlement token is unset")
	}
	if len(b.cfg.FeeTiers) == 0 {
		problems = append(problems, "no fee tiers configured")
	}
	if b.cfg.MinLiquidity == nil {
		problems = append(problems, "minimum liquidity is unset")
	}
	return problems
}

// AnalyzeAllPools inspects every configured fee tier for the token and marks
// the selector's pick. Ordering follows the configured tier priority.
func (b *Bridge) AnalyzeAllPools(ctx context.Context, token common.Address, amount *big.Int) ([]domain.PoolAnalysis, error) {
	analyses, err := b.analyzer.AnalyzeAll(ctx, token, amount)
	if err != nil {
		return nil, err
	}
	return b.selector.MarkRecommended(analyses), nil
}

// Estimate produces a slippage-bounded conversion estimate for display. A
// non-zero preferredFeeTier restricts the analysis to that tier. Estimation
// failures are folded into the estimate (IsValid=false) so UIs can degrade
// gracefully; the only side effect is cache population.
func (b *Bridge) Estimate(ctx context.Context, token common.Address, amount *big.Int, preferredFeeTier uint32) domain.ConversionEstimate {
	est := domain.ConversionEstimate{
		InputToken:  token,
		InputAmount: amount,
	}

	if amount == nil || amount.Sign() <= 0 {
		est.ErrorMessage = "amount must be positive"
		return est
	}

	tiers := b.cfg.FeeTiers
	if preferredFeeTier != 0 {
		tiers = []uint32{preferredFeeTier}
	}

	analyses, err := b.analyzer.AnalyzeTiers(ctx, token, amount, tiers)
	if err != nil {
		est.ErrorMessage = err.Error()
		return est
	}

	pick, ok := b.selector.Select(analyses)
	if !ok {
		est.ErrorMessage = estimateFailure(analyses)
		return est
	}

	minOut := domain.MinimumOutput(pick.ExpectedOutput, b.cfg.SlippageBps)

	est.ExpectedOutput = pick.ExpectedOutput
	est.MinimumOutput = minOut
	est.FeeTierUsed = pick.FeeTier
	est.VenueUsed = pick.PoolAddress
	est.SlippageAmount = new(big.Int).Sub(pick.ExpectedOutput, minOut)
	est.SlippagePercent = float64(b.cfg.SlippageBps) / 100
	est.GasEstimate = pick.GasEstimate
	est.IsValid = true
	return est
}

// estimateFailure distinguishes "no pool at all" from "pool found but quote
// failed" so the UI message points at the actual problem.
func estimateFailure(analyses []domain.PoolAnalysis) string {
	for _, a := range analyses {
		if a.Exists && a.QuoteError != "" {
			return a.QuoteError
		}
	}
	return noViablePoolMessage
}

// CacheInfo exposes the raw cache entry for a pair and tier.
func (b *Bridge) CacheInfo(tokenA, tokenB common.Address, feeTier uint32) domain.CacheLookup {
	return b.cache.Get(domain.NewVenueKey(tokenA, tokenB, feeTier))
}

// IsOperational reports whether the bridge can currently execute a
// conversion: complete configuration and at least one tier above the
// liquidity threshold.
func (b *Bridge) IsOperational(ctx context.Context) bool {
	return b.health.IsOperational(ctx)
}

// Diagnostics returns the per-tier operational breakdown.
func (b *Bridge) Diagnostics(ctx context.Context) Diagnostics {
	return b.health.Diagnostics(ctx)
}

// ConvertAndForward executes the stateful conversion: fresh route selection,
// allowance top-up, slippage-floored swap, and forwarding of the realized
// output to the settlement ledger. Steps are strictly ordered; the swap and
// the settlement call are separate transactions, so a ledger rejection after
// a successful swap surfaces as ErrSettlementRejected rather than a rollback.
func (b *Bridge) ConvertAndForward(ctx context.Context, req domain.ConversionRequest) (domain.ConversionReceipt, error) {
	var receipt domain.ConversionReceipt

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return receipt, fmt.Errorf("bridge: amount must be positive")
	}

	release, err := b.gate.Enter(ctx, req.Caller, defaultGateTTL)
	if err != nil {
		return receipt, err
	}
	defer release()

	log := b.logger.With(
		slog.String("caller", req.Caller.Hex()),
		slog.String("token", req.Token.Hex()),
		slog.String("amount", req.Amount.String()),
	)

	// 1. Operational gate.
	if !b.health.IsOperational(ctx) {
		return receipt, domain.ErrNotOperational
	}

	// 2. Fresh route selection. A caller-supplied or previously displayed
	// estimate is never trusted for execution.
	tiers := b.cfg.FeeTiers
	if req.PreferredFeeTier != 0 {
		tiers = []uint32{req.PreferredFeeTier}
	}
	analyses, err := b.analyzer.AnalyzeTiers(ctx, req.Token, req.Amount, tiers)
	if err != nil {
		return receipt, fmt.Errorf("bridge: analyze: %w", err)
	}
	pick, ok := b.selector.Select(analyses)
	if !ok {
		return receipt, domain.ErrNoViablePool
	}

	// 3. Slippage floor. An override may only tighten the bound.
	minOut := domain.MinimumOutput(pick.ExpectedOutput, b.cfg.SlippageBps)
	if req.MinOutputOverride != nil && req.MinOutputOverride.Cmp(minOut) > 0 {
		minOut = req.MinOutputOverride
	}

	// 4. Allowance top-up, waiting for finality before the swap.
	if err := b.ensureAllowance(ctx, req); err != nil {
		return receipt, err
	}

	// Pre-submission timeout boundary: once the swap is submitted the
	// operation runs to its chain-level outcome.
	if err := ctx.Err(); err != nil {
		return receipt, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	// 5. Swap with the floor enforced on chain.
	swap, err := b.venue.Swap(ctx, domain.SwapParams{
		TokenIn:      req.Token,
		TokenOut:     b.cfg.SettlementToken,
		FeeTier:      pick.FeeTier,
		AmountIn:     req.Amount,
		MinAmountOut: minOut,
		Recipient:    b.cfg.Wallet,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlippageExceeded) {
			return receipt, err
		}
		return receipt, fmt.Errorf("bridge: swap: %w", err)
	}
	if swap.AmountOut == nil || swap.AmountOut.Cmp(minOut) < 0 {
		// The venue should have reverted below the floor; treat a
		// short-delivered result the same way. No settlement call is made.
		return receipt, domain.ErrSlippageExceeded
	}

	log.InfoContext(ctx, "swap settled",
		slog.Uint64("fee_tier", uint64(pick.FeeTier)),
		slog.String("realized_output", swap.AmountOut.String()),
		slog.String("tx", swap.TxHash.Hex()),
	)

	// 6. Forward the realized output, unmodified, to the settlement ledger.
	confirmation, err := b.ledger.Contribute(ctx, domain.Contribution{
		CampaignID:  req.CampaignID,
		ProjectID:   req.ProjectID,
		Amount:      swap.AmountOut,
		Beneficiary: req.Caller,
		BypassCode:  req.BypassCode,
	})
	if err != nil {
		// The swap has already settled; this is a genuine two-transaction
		// boundary, surfaced distinctly so callers know funds converted.
		return domain.ConversionReceipt{
			RealizedOutput: swap.AmountOut,
			SwapTxHash:     swap.TxHash.Hex(),
		}, fmt.Errorf("%w: %v", domain.ErrSettlementRejected, err)
	}

	return domain.ConversionReceipt{
		RealizedOutput:         swap.AmountOut,
		SettlementConfirmation: confirmation,
		SwapTxHash:             swap.TxHash.Hex(),
	}, nil
}

// ensureAllowance tops up the router allowance to amount*multiplier when the
// current allowance cannot cover the requested amount. The over-approval
// amortizes gas across repeat conversions.
func (b *Bridge) ensureAllowance(ctx context.Context, req domain.ConversionRequest) error {
	allowance, err := b.tokens.Allowance(ctx, req.Token, b.cfg.Wallet, b.cfg.Router)
	if err != nil {
		return fmt.Errorf("bridge: read allowance: %w", err)
	}
	if allowance.Cmp(req.Amount) >= 0 {
		return nil
	}

	multiplier := b.cfg.ApproveMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	target := new(big.Int).Mul(req.Amount, big.NewInt(multiplier))

	approveCtx := ctx
	if req.ConfirmWait > 0 {
		var cancel context.CancelFunc
		approveCtx, cancel = context.WithTimeout(ctx, req.ConfirmWait)
		defer cancel()
	}

	if err := b.tokens.Approve(approveCtx, req.Token, b.cfg.Router, target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: allowance approval: %v", domain.ErrTimeout, err)
		}
		return fmt.Errorf("bridge: approve: %w", err)
	}

	b.logger.InfoContext(ctx, "allowance topped up",
		slog.String("token", req.Token.Hex()),
		slog.String("spender", b.cfg.Router.Hex()),
		slog.String("amount", target.String()),
	)
	return nil
}
