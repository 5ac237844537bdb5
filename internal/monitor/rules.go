package monitor

import (
	"math"
	"time"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
)

// tickContext carries the per-tick numbers every rule reads, plus the
// suppress flag the hold-to-expiration rule sets for the rest of the chain.
type tickContext struct {
	profitPct    float64
	lossPct      float64
	elapsed      time.Duration
	volatility   float64
	pastClose    bool // tick is at or past the session close
	suppressTake bool // skip profit-target and trailing exits this tick
}

// Rule is one step of the exit chain. Rules run in a fixed order and the
// first one returning a close reason wins; a rule may instead mutate the
// position (trailing bookkeeping) or the context (suppression) and pass.
type Rule struct {
	Name  string
	Apply func(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool)
}

// ExitRules returns the rule chain in priority order. Order is behavior:
// the emergency stop must precede the regular stop, and hold-to-expiration
// must precede the take-profit rules it suppresses.
func ExitRules() []Rule {
	return []Rule{
		{Name: "emergency_stop", Apply: emergencyStop},
		{Name: "hold_to_expiration", Apply: holdToExpiration},
		{Name: "profit_target", Apply: profitTarget},
		{Name: "trailing_stop", Apply: trailingStop},
		{Name: "stop_loss", Apply: stopLoss},
		{Name: "time_exit", Apply: timeExit},
	}
}

// emergencyStop caps a catastrophic single-tick loss before anything else
// gets a say.
func emergencyStop(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if tc.lossPct >= cfg.EmergencyStopPct {
		return ReasonEmergencyStop, true
	}
	return ReasonNone, false
}

// holdToExpiration lets a very profitable position in a calm tape ride to
// expiration: it closes nothing, it only suppresses the take-profit rules
// for this tick.
func holdToExpiration(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if tc.profitPct >= cfg.HoldProfitPct && tc.volatility < cfg.HoldVolCeiling {
		tc.suppressTake = true
	}
	return ReasonNone, false
}

// profitTarget closes at a target that widens with hold time, from
// TargetMinPct at entry to TargetMaxPct at the maximum hold.
func profitTarget(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if tc.suppressTake {
		return ReasonNone, false
	}
	if tc.profitPct >= targetFor(tc.elapsed, cfg) {
		return ReasonProfitTarget, true
	}
	return ReasonNone, false
}

// targetFor interpolates the progressive profit target for an elapsed hold.
func targetFor(elapsed time.Duration, cfg *config.ExitConfig) float64 {
	if cfg.MaxHold <= 0 {
		return cfg.TargetMinPct
	}
	frac := float64(elapsed) / float64(cfg.MaxHold)
	frac = math.Max(0, math.Min(1, frac))
	return cfg.TargetMinPct + (cfg.TargetMaxPct-cfg.TargetMinPct)*frac
}

// trailingStop arms once profit touches the trigger, ratchets the high-water
// mark and its floor while armed, and closes when profit falls through the
// floor. The floor never relaxes, even if the high-water mark is never
// exceeded again.
func trailingStop(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if p.State == StateOpen && tc.profitPct >= cfg.TrailingTriggerPct {
		p.State = StateTrailing
		p.HighWaterPct = tc.profitPct
		p.FloorPct = trailingFloor(p.HighWaterPct, cfg)
	}

	if p.State != StateTrailing {
		return ReasonNone, false
	}

	if tc.profitPct > p.HighWaterPct {
		p.HighWaterPct = tc.profitPct
		if floor := trailingFloor(p.HighWaterPct, cfg); floor > p.FloorPct {
			p.FloorPct = floor
		}
	}

	if !tc.suppressTake && tc.profitPct < p.FloorPct {
		return ReasonTrailingStop, true
	}
	return ReasonNone, false
}

// trailingFloor is the profit level a trailing position must defend: the
// locked-in share of the high-water mark, but never closer to it than the
// minimum trail distance allows.
func trailingFloor(highWaterPct float64, cfg *config.ExitConfig) float64 {
	return math.Max(cfg.TrailingMinDistance, highWaterPct-cfg.TrailingLockInPct)
}

// stopLoss is the regular loss cap. It must stay wider than the bid/ask
// bounce seen at the configured tick cadence or noise will close positions.
func stopLoss(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if tc.lossPct >= cfg.RegularStopPct {
		return ReasonStopLoss, true
	}
	return ReasonNone, false
}

// timeExit closes at the maximum hold or the session close, whichever the
// tick reaches first, regardless of profit state.
func timeExit(p *Position, tc *tickContext, cfg *config.ExitConfig) (CloseReason, bool) {
	if tc.elapsed >= cfg.MaxHold || tc.pastClose {
		return ReasonTimeExit, true
	}
	return ReasonNone, false
}
