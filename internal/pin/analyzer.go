package pin

import (
	"math"

	"github.com/dgnsrekt/gexpin-engine/internal/gex"
)

// Action is the analyzer's verdict for one evaluation cycle.
type Action int

const (
	ActionProceed Action = iota // trade directionally with the chosen peak
	ActionCondor                // two competing peaks: go neutral at the midpoint
	ActionSkip                  // competing but too late in the session
)

func (a Action) String() string {
	switch a {
	case ActionCondor:
		return "iron_condor"
	case ActionSkip:
		return "skip"
	default:
		return "proceed"
	}
}

// Analysis is the result of comparing the top two peaks. Computed once per
// snapshot and never stored.
type Analysis struct {
	PeakA, PeakB  gex.Peak
	ScoreRatio    float64
	OppositeSides bool
	Action        Action
	Chosen        gex.Peak // valid when Action == ActionProceed
	CondorCenter  float64  // valid when Action == ActionCondor
}

// AnalyzeCompeting decides whether price is caught between two comparably
// strong peaks. pastCutoff is the session-time gate: a competing structure
// found after the cutoff is skipped because not enough theta decay remains
// to resolve a neutral position. The decision is symmetric in peakA/peakB.
func AnalyzeCompeting(peakA, peakB gex.Peak, spot float64, pastCutoff bool, ratioThreshold, strikeIncrement float64) Analysis {
	scoreA, scoreB := peakA.Score(), peakB.Score()

	stronger := peakA
	if scoreB > scoreA || (scoreB == scoreA && peakB.Distance < peakA.Distance) {
		stronger = peakB
	}

	ratio := 0.0
	if maxScore := math.Max(scoreA, scoreB); maxScore > 0 {
		ratio = math.Min(scoreA, scoreB) / maxScore
	}

	lo, hi := math.Min(peakA.Strike, peakB.Strike), math.Max(peakA.Strike, peakB.Strike)
	opposite := lo < spot && spot < hi

	result := Analysis{
		PeakA:         peakA,
		PeakB:         peakB,
		ScoreRatio:    ratio,
		OppositeSides: opposite,
	}

	if !opposite || ratio <= ratioThreshold {
		result.Action = ActionProceed
		result.Chosen = stronger
		return result
	}

	if pastCutoff {
		result.Action = ActionSkip
		return result
	}

	result.Action = ActionCondor
	result.CondorCenter = roundToIncrement((lo+hi)/2, strikeIncrement)
	return result
}

// roundToIncrement snaps a price to the instrument's strike grid.
func roundToIncrement(price, increment float64) float64 {
	if increment <= 0 {
		return price
	}
	return math.Round(price/increment) * increment
}
