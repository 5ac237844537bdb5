package gex

import (
	"sort"
	"time"
)

// GammaProfile is an immutable snapshot of net dealer gamma exposure by
// strike, together with the underlying spot at capture time.
type GammaProfile struct {
	Ticker    string
	Spot      float64
	Timestamp time.Time
	Exposure  map[float64]float64 // strike -> signed gamma exposure
}

// Strikes returns the profile's strikes in ascending order.
func (p *GammaProfile) Strikes() []float64 {
	strikes := make([]float64, 0, len(p.Exposure))
	for s := range p.Exposure {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)
	return strikes
}
