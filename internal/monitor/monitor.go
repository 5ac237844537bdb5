package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
)

// Tick is one mark-to-market observation for an open position: the current
// cost to close the spread and the volatility index reading at that moment.
// SessionClose, when set, is the cash close of the tick's trading day; a
// zero value disables the session-close leg of the time exit.
type Tick struct {
	Timestamp    time.Time
	Mark         float64
	Volatility   float64
	SessionClose time.Time
}

// Decision is the outcome of evaluating one tick.
type Decision struct {
	PositionID string
	Timestamp  time.Time
	State      State
	Close      bool
	Reason     CloseReason
	Rule       string
	ProfitPct  float64
	Stale      bool
}

// Monitor drives the exit state machine for open positions. Evaluate is a
// deterministic function of the position state and the tick; it performs no
// I/O and never reads the wall clock, so a replay over the same tick
// sequence reproduces the same transitions bit for bit.
type Monitor struct {
	cfg    config.ExitConfig
	rules  []Rule
	logger *zap.Logger
}

func NewMonitor(cfg config.ExitConfig, logger *zap.Logger) *Monitor {
	return &Monitor{cfg: cfg, rules: ExitRules(), logger: logger}
}

// Evaluate advances the position through one tick. The caller must be the
// position's single owner and must feed ticks in non-decreasing time order;
// out-of-order ticks older than the staleness window are treated as missed.
func (m *Monitor) Evaluate(p *Position, t Tick) Decision {
	if p.State == StateClosed {
		return Decision{PositionID: p.ID, Timestamp: t.Timestamp, State: StateClosed, Reason: p.CloseReason}
	}

	if m.isStale(p, t) {
		return m.handleStale(p, t)
	}
	p.staleStreak = 0

	tc := &tickContext{
		profitPct:  p.ProfitPct(t.Mark),
		elapsed:    t.Timestamp.Sub(p.OpenedAt),
		volatility: t.Volatility,
		pastClose:  !t.SessionClose.IsZero() && !t.Timestamp.Before(t.SessionClose),
	}
	tc.lossPct = -tc.profitPct

	decision := Decision{
		PositionID: p.ID,
		Timestamp:  t.Timestamp,
		ProfitPct:  tc.profitPct,
	}

	for _, rule := range m.rules {
		reason, closed := rule.Apply(p, tc, &m.cfg)
		if closed {
			m.close(p, t.Timestamp, reason)
			decision.State = StateClosed
			decision.Close = true
			decision.Reason = reason
			decision.Rule = rule.Name
			return decision
		}
	}

	p.LastTick = t.Timestamp
	decision.State = p.State
	return decision
}

// isStale reports whether the tick's timestamp lags the last processed tick
// by more than the staleness window.
func (m *Monitor) isStale(p *Position, t Tick) bool {
	if p.LastTick.IsZero() {
		return false
	}
	return t.Timestamp.Before(p.LastTick.Add(-m.cfg.StalenessWindow))
}

// handleStale holds the previous decision for a missed tick; a run of stale
// ticks beyond the ceiling forces a time-based exit rather than holding a
// position on dead data forever.
func (m *Monitor) handleStale(p *Position, t Tick) Decision {
	p.staleStreak++
	if p.staleStreak >= m.cfg.StaleTickCeiling {
		m.logger.Warn("stale tick ceiling reached, forcing exit",
			zap.String("position", p.ID),
			zap.Int("streak", p.staleStreak),
		)
		m.close(p, t.Timestamp, ReasonTimeExit)
		return Decision{
			PositionID: p.ID,
			Timestamp:  t.Timestamp,
			State:      StateClosed,
			Close:      true,
			Reason:     ReasonTimeExit,
			Rule:       "stale_escalation",
			Stale:      true,
		}
	}

	m.logger.Debug("stale tick held",
		zap.String("position", p.ID),
		zap.Time("tick", t.Timestamp),
		zap.Time("last", p.LastTick),
	)
	return Decision{PositionID: p.ID, Timestamp: t.Timestamp, State: p.State, Stale: true}
}

func (m *Monitor) close(p *Position, at time.Time, reason CloseReason) {
	p.State = StateClosed
	p.CloseReason = reason
	p.ClosedAt = at
	p.LastTick = at
}
