package config

// DefaultInstruments holds baseline zone policies for the supported index
// symbols. Distances, offsets and widths are index points; credits are
// dollars per spread.
var DefaultInstruments = map[string]InstrumentConfig{
	"SPX": {
		StrikeIncrement:  5,
		Near:             ZonePolicy{MaxDistance: 5, Offset: 10, Width: 5, MinCredit: 0.80, MaxCredit: 2.20},
		Moderate:         ZonePolicy{MaxDistance: 25, Offset: 25, Width: 10, MinCredit: 1.50, MaxCredit: 3.10},
		Far:              ZonePolicy{MaxDistance: 50, Offset: 40, Width: 15, MinCredit: 2.00, MaxCredit: 4.50},
		CondorWingOffset: 25,
		CondorWingWidth:  10,
		CondorMinCredit:  2.00,
	},
	"NDX": {
		StrikeIncrement:  10,
		Near:             ZonePolicy{MaxDistance: 20, Offset: 30, Width: 20, MinCredit: 2.00, MaxCredit: 6.00},
		Moderate:         ZonePolicy{MaxDistance: 80, Offset: 80, Width: 30, MinCredit: 4.00, MaxCredit: 10.00},
		Far:              ZonePolicy{MaxDistance: 160, Offset: 120, Width: 40, MinCredit: 6.00, MaxCredit: 14.00},
		CondorWingOffset: 80,
		CondorWingWidth:  30,
		CondorMinCredit:  6.00,
	},
	"RUT": {
		StrikeIncrement:  5,
		Near:             ZonePolicy{MaxDistance: 5, Offset: 10, Width: 5, MinCredit: 0.60, MaxCredit: 2.00},
		Moderate:         ZonePolicy{MaxDistance: 20, Offset: 20, Width: 10, MinCredit: 1.20, MaxCredit: 2.80},
		Far:              ZonePolicy{MaxDistance: 40, Offset: 30, Width: 10, MinCredit: 1.60, MaxCredit: 3.50},
		CondorWingOffset: 20,
		CondorWingWidth:  10,
		CondorMinCredit:  1.80,
	},
}
