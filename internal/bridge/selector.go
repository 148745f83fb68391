package bridge

import (
	"math/big"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// RouteSelector picks the best candidate from an analysis set under a
// deterministic tie-break policy. No randomness is involved so repeated
// selections over unchanged inputs always agree.
type RouteSelector struct {
	minLiquidity *big.Int
}

// NewRouteSelector creates a selector using the given liquidity threshold.
func NewRouteSelector(minLiquidity *big.Int) *RouteSelector {
	return &RouteSelector{minLiquidity: minLiquidity}
}

// Select applies the tie-break policy in order: discard non-existent or
// below-threshold candidates, pick the highest expected output, break exact
// ties by lowest fee tier, and finally by position in the input (which is
// the configured priority order). The second return is false when no
// candidate qualifies.
func (s *RouteSelector) Select(analyses []domain.PoolAnalysis) (domain.PoolAnalysis, bool) {
	var (
		best  domain.PoolAnalysis
		found bool
	)

	for _, a := range analyses {
		if !a.Viable(s.minLiquidity) {
			continue
		}
		if !found {
			best, found = a, true
			continue
		}

		switch a.ExpectedOutput.Cmp(best.ExpectedOutput) {
		case 1:
			best = a
		case 0:
			if a.FeeTier < best.FeeTier {
				best = a
			}
			// Equal output and equal tier cannot happen for distinct
			// entries; earlier position wins by not replacing.
		}
	}

	return best, found
}

// MarkRecommended returns a copy of analyses with IsRecommended set on the
// selector's pick, or unchanged when nothing qualifies. At most one entry is
// flagged.
func (s *RouteSelector) MarkRecommended(analyses []domain.PoolAnalysis) []domain.PoolAnalysis {
	pick, ok := s.Select(analyses)
	if !ok {
		return analyses
	}
	out := make([]domain.PoolAnalysis, len(analyses))
	copy(out, analyses)
	for i := range out {
		out[i].IsRecommended = out[i].FeeTier == pick.FeeTier
	}
	return out
}
