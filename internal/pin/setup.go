package pin

import "math"

// Strategy tags the concrete setup variant.
type Strategy int

const (
	StrategySkip Strategy = iota
	StrategyPutSpread
	StrategyCallSpread
	StrategyIronCondor
)

func (s Strategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyPutSpread:
		return "put_spread"
	case StrategyCallSpread:
		return "call_spread"
	case StrategyIronCondor:
		return "iron_condor"
	default:
		return "unknown"
	}
}

// Side is the vertical's short option type.
type Side int

const (
	SidePut Side = iota
	SideCall
)

func (s Side) String() string {
	if s == SideCall {
		return "call"
	}
	return "put"
}

// SkipReason explains why an evaluation cycle produced no trade.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipBeyondFar
	SkipCompetingPastCutoff
	SkipLowCredit
	SkipRichCredit
	SkipPricingAnomaly
	SkipInsufficientData
	SkipQuoteUnavailable
)

func (r SkipReason) String() string {
	switch r {
	case SkipBeyondFar:
		return "beyond_far_zone"
	case SkipCompetingPastCutoff:
		return "competing_past_cutoff"
	case SkipLowCredit:
		return "credit_below_minimum"
	case SkipRichCredit:
		return "credit_above_band"
	case SkipPricingAnomaly:
		return "pricing_anomaly"
	case SkipInsufficientData:
		return "insufficient_data"
	case SkipQuoteUnavailable:
		return "quote_unavailable"
	default:
		return "none"
	}
}

// Setup is the outcome of one evaluation cycle. It is a sealed tagged
// variant: each concrete type carries only the fields its strategy needs,
// so a partially filled generic record cannot exist.
type Setup interface {
	Strategy() Strategy
	sealed()
}

// Skip is the no-trade outcome.
type Skip struct {
	Ticker string
	Reason SkipReason
	Detail string
}

func (Skip) Strategy() Strategy { return StrategySkip }
func (Skip) sealed()            {}

// Vertical is a short put or call credit spread.
type Vertical struct {
	Ticker      string
	Side        Side
	ShortStrike float64
	LongStrike  float64
	Credit      float64
	Zone        Zone
	PeakStrike  float64
	PeakRank    int
}

func (v Vertical) Strategy() Strategy {
	if v.Side == SideCall {
		return StrategyCallSpread
	}
	return StrategyPutSpread
}
func (Vertical) sealed() {}

// Width returns the leg separation in index points.
func (v Vertical) Width() float64 {
	return math.Abs(v.ShortStrike - v.LongStrike)
}

// Condor is the neutral structure used when two comparable peaks bracket
// spot: a put wing below the center and a call wing above it.
type Condor struct {
	Ticker    string
	Center    float64
	PutShort  float64
	PutLong   float64
	CallShort float64
	CallLong  float64
	Credit    float64 // both wings combined
}

func (Condor) Strategy() Strategy { return StrategyIronCondor }
func (Condor) sealed()            {}

// WingWidth returns the leg separation of each wing.
func (c Condor) WingWidth() float64 {
	return math.Abs(c.PutShort - c.PutLong)
}
