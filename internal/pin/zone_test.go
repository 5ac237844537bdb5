package pin

import (
	"testing"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
)

func spxConfig() config.InstrumentConfig {
	return config.DefaultInstruments["SPX"]
}

func TestClassifyZonePartition(t *testing.T) {
	ic := spxConfig()

	cases := []struct {
		distance float64
		want     Zone
	}{
		{0, ZoneNearPin},
		{5, ZoneNearPin},
		{5.01, ZoneModerate},
		{19.34, ZoneModerate}, // pin 6980 vs spot 6960.66
		{25, ZoneModerate},
		{25.01, ZoneFar},
		{50, ZoneFar},
		{50.01, ZoneBeyond},
		{500, ZoneBeyond},
	}

	for _, tc := range cases {
		zone, _ := ClassifyZone(tc.distance, ic)
		if zone != tc.want {
			t.Errorf("distance %v: expected %v, got %v", tc.distance, tc.want, zone)
		}
	}
}

func TestClassifyZoneReturnsMatchingPolicy(t *testing.T) {
	ic := spxConfig()

	_, policy := ClassifyZone(19.34, ic)
	if policy != ic.Moderate {
		t.Errorf("moderate distance must carry the moderate policy, got %+v", policy)
	}

	_, beyond := ClassifyZone(1000, ic)
	if beyond != (config.ZonePolicy{}) {
		t.Errorf("beyond-far must carry the zero policy, got %+v", beyond)
	}
}
