package throttle

import (
	"fmt"
	"time"

	"github.com/veronewra/openverse/internal/common"
)

// Tier is the closed set of rate limit classes. Application records carry
// one of the named tiers; Anonymous is applied to callers without verified
// credentials.
type Tier int

const (
	TierAnonymous Tier = iota
	TierStandard
	TierEnhanced
	TierExempt
)

func (t Tier) String() string {
	switch t {
	case TierAnonymous:
		return "anonymous"
	case TierStandard:
		return "standard"
	case TierEnhanced:
		return "enhanced"
	case TierExempt:
		return "exempt"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier maps a stored tier string onto the enum. Anything outside the
// closed set is a data-integrity anomaly and yields
// common.ErrUnknownRateTier; it is never silently coerced to a permissive
// tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "anonymous":
		return TierAnonymous, nil
	case "standard":
		return TierStandard, nil
	case "enhanced":
		return TierEnhanced, nil
	case "exempt":
		return TierExempt, nil
	default:
		return 0, fmt.Errorf("%w: %q", common.ErrUnknownRateTier, s)
	}
}

// rate is one sliding-window limit: at most Limit requests within Window.
type rate struct {
	Limit  int
	Window time.Duration
}

// tierLimits names the two scopes a tier resolves to and their limits.
type tierLimits struct {
	BurstScope     string
	SustainedScope string
	Burst          rate
	Sustained      rate
}

// limitsFor returns the scope table entry for a tier. The second return is
// false for the exempt tier, which maps to no scopes and never touches the
// counter store. Anonymous limits come from configuration; the rest are
// fixed.
func (s *Service) limitsFor(tier Tier) (tierLimits, bool) {
	switch tier {
	case TierStandard:
		return tierLimits{
			BurstScope:     "standard_burst",
			SustainedScope: "standard_sustained",
			Burst:          rate{Limit: 100, Window: time.Minute},
			Sustained:      rate{Limit: 10000, Window: 24 * time.Hour},
		}, true
	case TierEnhanced:
		return tierLimits{
			BurstScope:     "enhanced_burst",
			SustainedScope: "enhanced_sustained",
			Burst:          rate{Limit: 200, Window: time.Minute},
			Sustained:      rate{Limit: 20000, Window: 24 * time.Hour},
		}, true
	case TierAnonymous:
		return tierLimits{
			BurstScope:     "anon_burst",
			SustainedScope: "anon_sustained",
			Burst:          s.anonBurst,
			Sustained:      s.anonSustained,
		}, true
	default: // TierExempt
		return tierLimits{}, false
	}
}
