package pin

import (
	"github.com/dgnsrekt/gexpin-engine/internal/config"
)

// Zone buckets the distance between spot and the chosen pin.
type Zone int

const (
	ZoneNearPin Zone = iota
	ZoneModerate
	ZoneFar
	ZoneBeyond // past the far cutoff: no trade
)

func (z Zone) String() string {
	switch z {
	case ZoneNearPin:
		return "near_pin"
	case ZoneModerate:
		return "moderate"
	case ZoneFar:
		return "far"
	default:
		return "beyond"
	}
}

// ClassifyZone maps a non-negative distance onto exactly one zone using the
// instrument's ordered cutoffs. The returned policy is the zone's strike
// selection rule; for ZoneBeyond the zero policy is returned.
func ClassifyZone(distance float64, ic config.InstrumentConfig) (Zone, config.ZonePolicy) {
	switch {
	case distance <= ic.Near.MaxDistance:
		return ZoneNearPin, ic.Near
	case distance <= ic.Moderate.MaxDistance:
		return ZoneModerate, ic.Moderate
	case distance <= ic.Far.MaxDistance:
		return ZoneFar, ic.Far
	default:
		return ZoneBeyond, config.ZonePolicy{}
	}
}
