package config

import (
	"fmt"
	"strings"
)

// ValidationErrors collects all configuration problems so a bad file is
// reported in one pass. Any entry is fatal at startup.
type ValidationErrors struct {
	Problems []string
}

func (e *ValidationErrors) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// HasErrors returns true if any validation errors exist.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

// Error formats all validation errors into a clear message.
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  - %s\n", p))
	}
	return sb.String()
}

// Validate checks threshold ordering and ranges across the whole config.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if len(c.Tickers) == 0 {
		errs.addf("at least one ticker is required")
	}
	for _, ticker := range c.Tickers {
		ic, ok := c.Instruments[ticker]
		if !ok {
			errs.addf("%s: no instrument configuration and no built-in default", ticker)
			continue
		}
		validateInstrument(errs, ticker, ic)
	}

	validateExit(errs, &c.Exit)

	if c.Competing.ScoreRatioThreshold <= 0 || c.Competing.ScoreRatioThreshold > 1 {
		errs.addf("competing.score_ratio_threshold must be in (0,1], got %v", c.Competing.ScoreRatioThreshold)
	}
	if c.Competing.TopPeaks < 2 {
		errs.addf("competing.top_peaks must be >= 2, got %d", c.Competing.TopPeaks)
	}
	if _, _, err := c.Competing.CutoffClock(); err != nil {
		errs.addf("competing.cutoff_time: %v", err)
	}

	if c.Engine.PollInterval <= 0 {
		errs.addf("engine.poll_interval must be positive")
	}
	if from := c.Engine.ExposureFrom; from != "volume" && from != "oi" {
		errs.addf("engine.exposure_from must be \"volume\" or \"oi\", got %q", from)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateInstrument(errs *ValidationErrors, ticker string, ic InstrumentConfig) {
	if ic.StrikeIncrement <= 0 {
		errs.addf("%s: strike_increment must be positive", ticker)
	}

	near, moderate, far := ic.Near.MaxDistance, ic.Moderate.MaxDistance, ic.Far.MaxDistance
	if near <= 0 {
		errs.addf("%s: near.max_distance must be positive", ticker)
	}
	if near >= moderate {
		errs.addf("%s: zone cutoffs out of order: near %v >= moderate %v", ticker, near, moderate)
	}
	if moderate >= far {
		errs.addf("%s: zone cutoffs out of order: moderate %v >= far %v", ticker, moderate, far)
	}

	for _, z := range []struct {
		name   string
		policy ZonePolicy
	}{{"near", ic.Near}, {"moderate", ic.Moderate}, {"far", ic.Far}} {
		if z.policy.Width <= 0 {
			errs.addf("%s: %s.width must be positive", ticker, z.name)
		}
		if z.policy.Offset < 0 {
			errs.addf("%s: %s.offset must be non-negative", ticker, z.name)
		}
		if z.policy.MinCredit <= 0 {
			errs.addf("%s: %s.min_credit must be positive", ticker, z.name)
		}
		if z.policy.MinCredit >= z.policy.Width {
			errs.addf("%s: %s.min_credit %v >= width %v makes every quote a pricing anomaly",
				ticker, z.name, z.policy.MinCredit, z.policy.Width)
		}
		if z.policy.MaxCredit != 0 && z.policy.MaxCredit <= z.policy.MinCredit {
			errs.addf("%s: %s.max_credit %v <= min_credit %v", ticker, z.name, z.policy.MaxCredit, z.policy.MinCredit)
		}
	}

	if ic.CondorWingWidth <= 0 {
		errs.addf("%s: condor_wing_width must be positive", ticker)
	}
	if ic.CondorWingOffset <= 0 {
		errs.addf("%s: condor_wing_offset must be positive", ticker)
	}
}

func validateExit(errs *ValidationErrors, e *ExitConfig) {
	pct := func(name string, v float64) {
		if v <= 0 || v > 100 {
			errs.addf("exit.%s must be in (0,100], got %v", name, v)
		}
	}
	pct("emergency_stop_pct", e.EmergencyStopPct)
	pct("regular_stop_pct", e.RegularStopPct)
	pct("target_min_pct", e.TargetMinPct)
	pct("target_max_pct", e.TargetMaxPct)
	pct("trailing_trigger_pct", e.TrailingTriggerPct)
	pct("trailing_lock_in_pct", e.TrailingLockInPct)
	pct("trailing_min_distance_pct", e.TrailingMinDistance)
	pct("hold_to_expiration_profit_pct", e.HoldProfitPct)

	if e.RegularStopPct > e.EmergencyStopPct {
		errs.addf("exit.regular_stop_pct %v > emergency_stop_pct %v: the regular stop could never fire first",
			e.RegularStopPct, e.EmergencyStopPct)
	}
	if e.TargetMinPct > e.TargetMaxPct {
		errs.addf("exit.target_min_pct %v > target_max_pct %v", e.TargetMinPct, e.TargetMaxPct)
	}
	if e.TrailingLockInPct >= e.TrailingTriggerPct {
		errs.addf("exit.trailing_lock_in_pct %v >= trailing_trigger_pct %v", e.TrailingLockInPct, e.TrailingTriggerPct)
	}
	if e.HoldVolCeiling <= 0 {
		errs.addf("exit.hold_to_expiration_vol_ceiling must be positive")
	}
	if e.MaxHold <= 0 {
		errs.addf("exit.max_hold must be positive")
	}
	if e.StalenessWindow < 0 {
		errs.addf("exit.staleness_window must be non-negative")
	}
	if e.StaleTickCeiling < 1 {
		errs.addf("exit.stale_tick_ceiling must be >= 1")
	}
}
