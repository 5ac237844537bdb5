package gex

import (
	"math"
	"sort"
)

// Peak is a candidate pin strike derived from a GammaProfile. Peaks are
// rebuilt on every snapshot and never persisted.
type Peak struct {
	Strike    float64
	Magnitude float64 // absolute exposure at the strike
	Rank      int     // 1 = strongest
	Distance  float64 // |strike - spot|
}

// Score combines exposure magnitude with inverse distance to spot. It is
// the ordering key used for ranking and for the competing-peak ratio:
// magnitude dominates, distance only discounts far-away strikes.
func (p Peak) Score() float64 {
	return p.Magnitude / (1 + p.Distance)
}

// RankPeaks extracts the top-k pin candidates from a profile, strongest
// first. Ties on magnitude break toward the strike closer to spot.
// Returns ErrInsufficientData when the profile is empty.
func RankPeaks(profile *GammaProfile, k int) ([]Peak, error) {
	if profile == nil || len(profile.Exposure) == 0 {
		return nil, ErrInsufficientData
	}
	if k < 2 {
		k = 2
	}

	peaks := make([]Peak, 0, len(profile.Exposure))
	for strike, exposure := range profile.Exposure {
		peaks = append(peaks, Peak{
			Strike:    strike,
			Magnitude: math.Abs(exposure),
			Distance:  math.Abs(strike - profile.Spot),
		})
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Magnitude != peaks[j].Magnitude {
			return peaks[i].Magnitude > peaks[j].Magnitude
		}
		if peaks[i].Distance != peaks[j].Distance {
			return peaks[i].Distance < peaks[j].Distance
		}
		// Stable order for equal magnitude and distance keeps replays
		// bit-identical regardless of map iteration order.
		return peaks[i].Strike < peaks[j].Strike
	})

	if len(peaks) > k {
		peaks = peaks[:k]
	}
	for i := range peaks {
		peaks[i].Rank = i + 1
	}
	return peaks, nil
}
