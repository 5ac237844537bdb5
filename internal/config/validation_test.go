package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Tickers:     []string{"SPX"},
		Instruments: map[string]InstrumentConfig{"SPX": DefaultInstruments["SPX"]},
		Exit: ExitConfig{
			EmergencyStopPct:    25,
			RegularStopPct:      15,
			TargetMinPct:        25,
			TargetMaxPct:        60,
			TrailingTriggerPct:  30,
			TrailingLockInPct:   20,
			TrailingMinDistance: 10,
			HoldProfitPct:       80,
			HoldVolCeiling:      18,
			MaxHold:             6*time.Hour + 30*time.Minute,
			StalenessWindow:     time.Minute,
			StaleTickCeiling:    10,
		},
		Competing: CompetingConfig{ScoreRatioThreshold: 0.5, CutoffTime: "12:00", TopPeaks: 2},
		Engine:    EngineConfig{PollInterval: 15 * time.Second, ExposureFrom: "volume"},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidateZoneCutoffOrdering(t *testing.T) {
	cfg := validConfig()
	ic := cfg.Instruments["SPX"]
	ic.Near.MaxDistance = 60 // beyond far cutoff 50
	cfg.Instruments["SPX"] = ic

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure for out-of-order zone cutoffs")
	}
	if !strings.Contains(err.Error(), "out of order") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestValidateStopOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Exit.RegularStopPct = 40 // wider than the 25 emergency cap

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure when regular stop exceeds emergency stop")
	}
}

func TestValidateMinCreditVsWidth(t *testing.T) {
	cfg := validConfig()
	ic := cfg.Instruments["SPX"]
	ic.Near.MinCredit = ic.Near.Width // credit can never reach width
	cfg.Instruments["SPX"] = ic

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure when min credit >= width")
	}
}

func TestValidateCollectsMultipleProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Exit.StaleTickCeiling = 0
	cfg.Competing.ScoreRatioThreshold = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	verrs, ok := err.(*ValidationErrors)
	if !ok {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verrs.Problems) < 2 {
		t.Errorf("expected both problems reported, got %v", verrs.Problems)
	}
}
