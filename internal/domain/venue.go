// Package domain defines the bridge's core types, typed errors, and the
// interfaces its collaborators implement.
package domain

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AgeUnknown is the age reported for a key that has never been cached. A
// missing entry is indistinguishable from an infinitely expired one.
const AgeUnknown int64 = math.MaxInt64

// VenueKey identifies one candidate route: a token pair at a specific fee
// tier. The pair is stored in canonical (ascending address) order so that
// (A, B, fee) and (B, A, fee) produce the same key.
type VenueKey struct {
	Token0  common.Address
	Token1  common.Address
	FeeTier uint32
}

// NewVenueKey builds a VenueKey with the token pair in canonical order.
func NewVenueKey(tokenA, tokenB common.Address, feeTier uint32) VenueKey {
	if tokenA.Cmp(tokenB) > 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	return VenueKey{Token0: tokenA, Token1: tokenB, FeeTier: feeTier}
}

// VenueInfo is the last-known metadata for one venue. It is created on first
// query for a key and refreshed whenever the cache entry is absent or
// expired. An expired entry is still returned as a hint but must be
// refreshed before being trusted for execution.
type VenueInfo struct {
	PoolAddress common.Address
	FeeTier     uint32
	Exists      bool
	Liquidity   *big.Int
	QueriedAt   time.Time
}

// PoolAnalysis is the per-fee-tier output of the analyzer. Exactly one entry
// among existing, above-threshold candidates carries IsRecommended=true (the
// selector's pick), or none if no candidate qualifies.
type PoolAnalysis struct {
	PoolAddress    common.Address `json:"pool_address"`
	FeeTier        uint32         `json:"fee_tier"`
	Exists         bool           `json:"exists"`
	Liquidity      *big.Int       `json:"liquidity"`
	ExpectedOutput *big.Int       `json:"expected_output,omitempty"`
	GasEstimate    uint64         `json:"gas_estimate,omitempty"`
	IsRecommended  bool           `json:"is_recommended"`
	// QuoteError carries a transient quote failure for this tier. Tiers with
	// a quote error are never selected but are still reported.
	QuoteError string `json:"quote_error,omitempty"`
}

// Viable reports whether this tier passed the existence and liquidity
// filter and produced a usable quote.
func (p PoolAnalysis) Viable(minLiquidity *big.Int) bool {
	if !p.Exists || p.ExpectedOutput == nil || p.QuoteError != "" {
		return false
	}
	if p.Liquidity == nil {
		return false
	}
	return p.Liquidity.Cmp(minLiquidity) >= 0
}

// CacheLookup is the result of a venue cache read.
type CacheLookup struct {
	Info       VenueInfo
	AgeSeconds int64
	IsExpired  bool
	Found      bool
}

// VenueCache is a process-wide TTL cache of venue metadata. Writes are
// last-writer-wins; concurrent population races are tolerated in exchange
// for lock-free reads.
type VenueCache interface {
	// Get returns the stored entry if present. An absent key is reported as
	// Found=false, IsExpired=true, AgeSeconds=AgeUnknown. Get never triggers
	// a refresh itself.
	Get(key VenueKey) CacheLookup
	// Put overwrites the entry for key unconditionally.
	Put(key VenueKey, info VenueInfo)
}
