package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is the basis-point scale used for slippage arithmetic.
const BpsDenominator = 10_000

// MinimumOutput computes the slippage floor for an expected output:
// floor(expected * (10000 - slippageBps) / 10000). The result never exceeds
// expected for slippageBps in [0, 10000).
func MinimumOutput(expected *big.Int, slippageBps uint32) *big.Int {
	if expected == nil {
		return nil
	}
	keep := big.NewInt(int64(BpsDenominator) - int64(slippageBps))
	out := new(big.Int).Mul(expected, keep)
	return out.Div(out, big.NewInt(BpsDenominator))
}

// ConversionEstimate is the read-only result of an estimate call. It drives
// display only; execution never trusts a previously computed estimate.
type ConversionEstimate struct {
	InputToken      common.Address `json:"input_token"`
	InputAmount     *big.Int       `json:"input_amount"`
	ExpectedOutput  *big.Int       `json:"expected_output,omitempty"`
	MinimumOutput   *big.Int       `json:"minimum_output,omitempty"`
	FeeTierUsed     uint32         `json:"fee_tier_used,omitempty"`
	VenueUsed       common.Address `json:"venue_used,omitempty"`
	SlippageAmount  *big.Int       `json:"slippage_amount,omitempty"`
	SlippagePercent float64        `json:"slippage_percent"`
	GasEstimate     uint64         `json:"gas_estimate,omitempty"`
	IsValid         bool           `json:"is_valid"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// ConversionRequest describes one convert-then-forward operation.
type ConversionRequest struct {
	Caller     common.Address
	Token      common.Address
	Amount     *big.Int
	CampaignID *big.Int
	ProjectID  *big.Int
	// BypassCode is an optional ledger-side fee bypass token.
	BypassCode [32]byte
	// MinOutputOverride, when set, may only tighten the computed minimum:
	// the enforced floor is max(computed, override).
	MinOutputOverride *big.Int
	// PreferredFeeTier restricts route selection to a single tier when
	// non-zero.
	PreferredFeeTier uint32
	// ConfirmWait bounds the pre-submission confirmation wait (allowance
	// approval). Zero means the caller's context deadline governs.
	ConfirmWait time.Duration
}

// ConversionReceipt is created only on full success and is never partially
// populated.
type ConversionReceipt struct {
	RealizedOutput         *big.Int `json:"realized_output"`
	SettlementConfirmation string   `json:"settlement_confirmation"`
	SwapTxHash             string   `json:"swap_tx_hash"`
}

// Conversion outcome states recorded in the store.
const (
	ConversionSettled  = "settled"
	ConversionSwapped  = "swapped" // swap succeeded, settlement rejected
	ConversionFailed   = "failed"  // nothing settled on chain
	ConversionArchived = "archived"
)

// ConversionRecord is the persisted audit trail for one conversion attempt.
type ConversionRecord struct {
	ID             string
	Caller         common.Address
	Token          common.Address
	InputAmount    *big.Int
	MinimumOutput  *big.Int
	RealizedOutput *big.Int
	FeeTier        uint32
	CampaignID     *big.Int
	ProjectID      *big.Int
	Status         string
	FailureKind    string
	SwapTxHash     string
	SettlementRef  string
	CreatedAt      time.Time
	SettledAt      *time.Time
}

// ConversionStore persists conversion records.
type ConversionStore interface {
	Create(ctx context.Context, rec ConversionRecord) error
	Finish(ctx context.Context, id string, rec ConversionRecord) error
	Get(ctx context.Context, id string) (ConversionRecord, error)
	ListByCaller(ctx context.Context, caller common.Address, limit, offset int) ([]ConversionRecord, error)
	// ListSettledBefore returns settled records older than cutoff, for
	// archival.
	ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]ConversionRecord, error)
	// MarkArchived flips the given records to the archived status.
	MarkArchived(ctx context.Context, ids []string) error
}
