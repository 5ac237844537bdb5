package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if len(cfg.Tickers) != 1 || cfg.Tickers[0] != "SPX" {
		t.Errorf("expected default ticker SPX, got %v", cfg.Tickers)
	}
	if cfg.Exit.EmergencyStopPct != 25.0 {
		t.Errorf("expected default emergency stop 25, got %v", cfg.Exit.EmergencyStopPct)
	}
	if cfg.Competing.ScoreRatioThreshold != 0.5 {
		t.Errorf("expected default score ratio threshold 0.5, got %v", cfg.Competing.ScoreRatioThreshold)
	}

	spx, ok := cfg.Instrument("SPX")
	if !ok {
		t.Fatal("expected SPX instrument defaults to be filled in")
	}
	if spx.StrikeIncrement != 5 {
		t.Errorf("expected SPX strike increment 5, got %v", spx.StrikeIncrement)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	_ = os.Setenv("GEXPIN_EXIT_REGULAR_STOP_PCT", "20")
	defer func() { _ = os.Unsetenv("GEXPIN_EXIT_REGULAR_STOP_PCT") }()

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Exit.RegularStopPct != 20.0 {
		t.Errorf("expected env override to 20, got %v", cfg.Exit.RegularStopPct)
	}
}

func TestCutoffClock(t *testing.T) {
	c := CompetingConfig{CutoffTime: "12:30"}
	h, m, err := c.CutoffClock()
	if err != nil {
		t.Fatal(err)
	}
	if h != 12 || m != 30 {
		t.Errorf("expected 12:30, got %02d:%02d", h, m)
	}

	c.CutoffTime = "25:00"
	if _, _, err := c.CutoffClock(); err == nil {
		t.Error("expected error for out-of-range hour")
	}
}
