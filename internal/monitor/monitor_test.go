package monitor

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

func testExitConfig() config.ExitConfig {
	return config.ExitConfig{
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
		StaleTickCeiling:    3,
	}
}

var openedAt = time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)

func openPosition(t *testing.T) *Position {
	t.Helper()
	p, err := Open(pin.Vertical{
		Ticker:      "SPX",
		Side:        pin.SidePut,
		ShortStrike: 6955,
		LongStrike:  6945,
		Credit:      1.00,
		Zone:        pin.ZoneModerate,
	}, openedAt)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func tick(offset time.Duration, mark float64) Tick {
	return Tick{Timestamp: openedAt.Add(offset), Mark: mark, Volatility: 15}
}

func TestOpenRejectsSkip(t *testing.T) {
	if _, err := Open(pin.Skip{Ticker: "SPX", Reason: pin.SkipBeyondFar}, openedAt); err != ErrNotTradable {
		t.Fatalf("expected ErrNotTradable, got %v", err)
	}
}

func TestEmergencyStopPrecedesStopLoss(t *testing.T) {
	// A 30% loss satisfies both stops; the emergency cap must win.
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	d := m.Evaluate(p, tick(30*time.Second, 1.30))
	if !d.Close || d.Reason != ReasonEmergencyStop {
		t.Fatalf("expected emergency stop, got %+v", d)
	}
	if p.State != StateClosed || p.CloseReason != ReasonEmergencyStop {
		t.Errorf("position not closed with emergency reason: %+v", p)
	}
}

func TestStopLossBetweenRegularAndEmergency(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	// 20% loss: past the 15% regular stop, short of the 25% emergency cap.
	d := m.Evaluate(p, tick(30*time.Second, 1.20))
	if !d.Close || d.Reason != ReasonStopLoss {
		t.Fatalf("expected regular stop loss, got %+v", d)
	}
}

func TestStopWiderThanTickNoiseHolds(t *testing.T) {
	// With a coarse tick cadence the stop must sit above bid/ask bounce: a
	// 20% mark excursion under a 25% stop is noise, not an exit.
	cfg := testExitConfig()
	cfg.RegularStopPct = 25
	cfg.EmergencyStopPct = 40
	m := NewMonitor(cfg, zap.NewNop())
	p := openPosition(t)

	d := m.Evaluate(p, tick(30*time.Second, 1.20))
	if d.Close {
		t.Fatalf("20%% bounce under a 25%% stop must hold, got %+v", d)
	}
	if p.State != StateOpen {
		t.Errorf("expected position still open, got %v", p.State)
	}
}

func TestProgressiveProfitTarget(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	// Early in the hold the target is near its 25% minimum.
	d := m.Evaluate(p, tick(5*time.Minute, 0.74)) // 26% profit
	if !d.Close || d.Reason != ReasonProfitTarget {
		t.Fatalf("expected profit target at 26%% early, got %+v", d)
	}

	// The same profit later in the hold no longer clears the widened target.
	p2 := openPosition(t)
	d2 := m.Evaluate(p2, tick(3*time.Hour, 0.74))
	if d2.Close {
		t.Fatalf("26%% against a widened mid-session target must hold, got %+v", d2)
	}
}

func TestTargetForInterpolates(t *testing.T) {
	cfg := testExitConfig()
	if got := targetFor(0, &cfg); got != 25 {
		t.Errorf("target at open: expected 25, got %v", got)
	}
	if got := targetFor(cfg.MaxHold, &cfg); got != 60 {
		t.Errorf("target at max hold: expected 60, got %v", got)
	}
	mid := targetFor(cfg.MaxHold/2, &cfg)
	if mid <= 25 || mid >= 60 {
		t.Errorf("mid-hold target must interpolate, got %v", mid)
	}
	if got := targetFor(2*cfg.MaxHold, &cfg); got != 60 {
		t.Errorf("target past max hold must clamp to 60, got %v", got)
	}
}

func TestTrailingStopLifecycle(t *testing.T) {
	// Raise the plain target out of the way so trailing is what exits.
	cfg := testExitConfig()
	cfg.TargetMinPct = 50
	cfg.TargetMaxPct = 90
	m := NewMonitor(cfg, zap.NewNop())
	p := openPosition(t)

	// 32% profit arms the trail: floor = max(10, 32-20) = 12.
	d := m.Evaluate(p, tick(10*time.Minute, 0.68))
	if d.Close || p.State != StateTrailing {
		t.Fatalf("expected trailing armed, got %+v / %v", d, p.State)
	}
	if p.FloorPct != 12 {
		t.Errorf("expected floor 12, got %v", p.FloorPct)
	}

	// Retrace to 15%: above the floor, stays open.
	d = m.Evaluate(p, tick(12*time.Minute, 0.85))
	if d.Close {
		t.Fatalf("15%% above the 12%% floor must hold, got %+v", d)
	}

	// Further retrace to 10%: through the floor, trailing stop fires.
	d = m.Evaluate(p, tick(14*time.Minute, 0.90))
	if !d.Close || d.Reason != ReasonTrailingStop {
		t.Fatalf("expected trailing stop at 10%%, got %+v", d)
	}
}

func TestTrailingFloorRatchets(t *testing.T) {
	cfg := testExitConfig()
	cfg.TargetMinPct = 80
	cfg.TargetMaxPct = 95
	m := NewMonitor(cfg, zap.NewNop())
	p := openPosition(t)

	marks := []float64{0.68, 0.55, 0.60, 0.50, 0.58}
	lastFloor := 0.0
	for i, mark := range marks {
		m.Evaluate(p, tick(time.Duration(i+1)*time.Minute, mark))
		if p.State == StateClosed {
			t.Fatalf("sequence should not close, closed at mark %v", mark)
		}
		if p.FloorPct < lastFloor {
			t.Fatalf("floor relaxed from %v to %v at mark %v", lastFloor, p.FloorPct, mark)
		}
		lastFloor = p.FloorPct
	}
	// HWM 50% -> floor 30.
	if p.HighWaterPct != 50 || p.FloorPct != 30 {
		t.Errorf("expected HWM 50 / floor 30, got %v / %v", p.HighWaterPct, p.FloorPct)
	}
}

func TestHoldToExpirationSuppressesTakeProfit(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	// 85% profit in a calm tape: both the target and the trail would fire,
	// but the ride-to-expiration rule suppresses them.
	d := m.Evaluate(p, Tick{Timestamp: openedAt.Add(2 * time.Hour), Mark: 0.15, Volatility: 12})
	if d.Close {
		t.Fatalf("hold-to-expiration must suppress take-profit exits, got %+v", d)
	}

	// Same profit in a stressed tape exits normally.
	p2 := openPosition(t)
	d2 := m.Evaluate(p2, Tick{Timestamp: openedAt.Add(2 * time.Hour), Mark: 0.15, Volatility: 25})
	if !d2.Close || d2.Reason != ReasonProfitTarget {
		t.Fatalf("high volatility must re-enable the profit target, got %+v", d2)
	}
}

func TestTimeExitAtMaxHold(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	d := m.Evaluate(p, tick(7*time.Hour, 0.98))
	if !d.Close || d.Reason != ReasonTimeExit {
		t.Fatalf("expected time exit past max hold, got %+v", d)
	}
}

func TestTimeExitAtSessionClose(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	// Well inside the max hold, but the tick is at the cash close.
	closeAt := openedAt.Add(2 * time.Hour)
	d := m.Evaluate(p, Tick{Timestamp: closeAt, Mark: 0.98, Volatility: 15, SessionClose: closeAt})
	if !d.Close || d.Reason != ReasonTimeExit {
		t.Fatalf("expected time exit at session close, got %+v", d)
	}
}

func TestStaleTickHoldsThenEscalates(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	m.Evaluate(p, tick(10*time.Minute, 0.95))

	// Ticks lagging the last processed one by more than the window are
	// missed, and the mark on them is never acted upon.
	stale := Tick{Timestamp: openedAt.Add(5 * time.Minute), Mark: 9.99, Volatility: 15}
	for i := 0; i < 2; i++ {
		d := m.Evaluate(p, stale)
		if !d.Stale || d.Close {
			t.Fatalf("stale tick %d must hold, got %+v", i, d)
		}
	}

	// Third consecutive stale tick reaches the ceiling: forced exit.
	d := m.Evaluate(p, stale)
	if !d.Close || d.Reason != ReasonTimeExit || d.Rule != "stale_escalation" {
		t.Fatalf("expected forced exit at stale ceiling, got %+v", d)
	}
}

func TestFreshTickResetsStaleStreak(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	m.Evaluate(p, tick(10*time.Minute, 0.95))
	stale := Tick{Timestamp: openedAt.Add(5 * time.Minute), Mark: 0.95, Volatility: 15}
	m.Evaluate(p, stale)
	m.Evaluate(p, stale)
	m.Evaluate(p, tick(11*time.Minute, 0.95))

	// The streak restarted, so two more stale ticks stay under the ceiling.
	m.Evaluate(p, stale)
	d := m.Evaluate(p, stale)
	if d.Close {
		t.Fatalf("streak should have reset on the fresh tick, got %+v", d)
	}
}

func TestClosedPositionIsTerminal(t *testing.T) {
	m := NewMonitor(testExitConfig(), zap.NewNop())
	p := openPosition(t)

	m.Evaluate(p, tick(30*time.Second, 1.30))
	d := m.Evaluate(p, tick(1*time.Minute, 0.10))
	if d.Close || d.State != StateClosed || d.Reason != ReasonEmergencyStop {
		t.Fatalf("closed position must stay closed with its reason, got %+v", d)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	ticks := []Tick{
		tick(1*time.Minute, 0.95),
		tick(2*time.Minute, 0.80),
		tick(3*time.Minute, 0.66),
		tick(4*time.Minute, 0.72),
		tick(5*time.Minute, 0.85),
		tick(6*time.Minute, 0.92),
	}

	run := func() []Decision {
		m := NewMonitor(testExitConfig(), zap.NewNop())
		p := openPosition(t)
		var out []Decision
		for _, tk := range ticks {
			d := m.Evaluate(p, tk)
			d.PositionID = "" // ids differ per run by construction
			out = append(out, d)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay diverged at tick %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}
