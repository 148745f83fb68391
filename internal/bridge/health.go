package bridge

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TierHealth is the per-tier slice of a diagnostic snapshot.
type TierHealth struct {
	FeeTier        uint32         `json:"fee_tier"`
	PoolAddress    common.Address `json:"pool_address"`
	Exists         bool           `json:"exists"`
	Liquidity      *big.Int       `json:"liquidity"`
	MeetsThreshold bool           `json:"meets_threshold"`
}

// Diagnostics is the observability breakdown behind IsOperational: which
// configuration pieces are present and how each configured tier looks right
// now. It is a read-only composition, not a separate state machine.
type Diagnostics struct {
	Operational    bool         `json:"operational"`
	ConfigComplete bool         `json:"config_complete"`
	ConfigProblems []string     `json:"config_problems,omitempty"`
	Tiers          []TierHealth `json:"tiers"`
	CheckedAt      time.Time    `json:"checked_at"`
}

// HealthMonitor derives the bridge's operational status. The venue side of
// the check probes the configured probe token's routes into the settlement
// currency.
type HealthMonitor struct {
	analyzer       *Analyzer
	probeToken     common.Address
	configProblems func() []string
}

// NewHealthMonitor creates a HealthMonitor. configProblems reports missing
// or defaulted configuration; an empty result means the configuration is
// complete.
func NewHealthMonitor(analyzer *Analyzer, probeToken common.Address, configProblems func() []string) *HealthMonitor {
	return &HealthMonitor{
		analyzer:       analyzer,
		probeToken:     probeToken,
		configProblems: configProblems,
	}
}

// Diagnostics returns the full per-tier breakdown.
func (h *HealthMonitor) Diagnostics(ctx context.Context) Diagnostics {
	problems := h.configProblems()
	d := Diagnostics{
		ConfigComplete: len(problems) == 0,
		ConfigProblems: problems,
		CheckedAt:      time.Now().UTC(),
	}

	min := h.analyzer.MinLiquidity()
	for _, tier := range h.analyzer.FeeTiers() {
		info, err := h.analyzer.venueInfo(ctx, h.probeToken, tier)
		th := TierHealth{FeeTier: tier}
		if err == nil {
			th.PoolAddress = info.PoolAddress
			th.Exists = info.Exists
			th.Liquidity = info.Liquidity
			th.MeetsThreshold = info.Exists && info.Liquidity != nil && info.Liquidity.Cmp(min) >= 0
		}
		d.Tiers = append(d.Tiers, th)
		if th.MeetsThreshold {
			d.Operational = true
		}
	}

	d.Operational = d.Operational && d.ConfigComplete
	return d
}

// IsOperational is true iff the configuration is fully populated and at
// least one configured fee tier currently reports an existing pool at or
// above the liquidity threshold.
func (h *HealthMonitor) IsOperational(ctx context.Context) bool {
	return h.Diagnostics(ctx).Operational
}
