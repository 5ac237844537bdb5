package engine

import (
	"sort"
	"time"

	"github.com/dgnsrekt/gexpin-engine/internal/monitor"
)

// PositionView is the read-only shape of an open position served over HTTP.
type PositionView struct {
	ID            string    `json:"id"`
	Ticker        string    `json:"ticker"`
	Strategy      string    `json:"strategy"`
	EntryCredit   float64   `json:"entry_credit"`
	Width         float64   `json:"width"`
	OpenedAt      time.Time `json:"opened_at"`
	State         string    `json:"state"`
	HighWaterPct  float64   `json:"high_water_pct"`
	FloorPct      float64   `json:"floor_pct"`
	LastProfitPct float64   `json:"last_profit_pct"`
	LastTick      time.Time `json:"last_tick"`
}

// DecisionView is one monitored tick's outcome, retained up to the
// configured decision depth.
type DecisionView struct {
	Time       time.Time `json:"time"`
	PositionID string    `json:"position_id"`
	Ticker     string    `json:"ticker"`
	State      string    `json:"state"`
	Close      bool      `json:"close"`
	Reason     string    `json:"reason,omitempty"`
	Rule       string    `json:"rule,omitempty"`
	ProfitPct  float64   `json:"profit_pct"`
	Stale      bool      `json:"stale,omitempty"`
}

func newDecisionView(p *monitor.Position, d monitor.Decision) DecisionView {
	view := DecisionView{
		Time:       d.Timestamp,
		PositionID: d.PositionID,
		Ticker:     p.Ticker,
		State:      d.State.String(),
		Close:      d.Close,
		Rule:       d.Rule,
		ProfitPct:  d.ProfitPct,
		Stale:      d.Stale,
	}
	if d.Reason != monitor.ReasonNone {
		view.Reason = d.Reason.String()
	}
	return view
}

// StatusView summarizes the engine for the status endpoint.
type StatusView struct {
	StartedAt     time.Time `json:"started_at"`
	Tickers       []string  `json:"tickers"`
	OpenPositions int       `json:"open_positions"`
	Stats         Stats     `json:"stats"`
}

// OpenPositions returns the open positions sorted by ticker.
func (e *Engine) OpenPositions() []PositionView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	views := make([]PositionView, 0, len(e.open))
	for _, op := range e.open {
		views = append(views, PositionView{
			ID:            op.pos.ID,
			Ticker:        op.pos.Ticker,
			Strategy:      op.pos.Strategy.String(),
			EntryCredit:   op.pos.EntryCredit,
			Width:         op.pos.Width,
			OpenedAt:      op.pos.OpenedAt,
			State:         op.pos.State.String(),
			HighWaterPct:  op.pos.HighWaterPct,
			FloorPct:      op.pos.FloorPct,
			LastProfitPct: op.lastProfit,
			LastTick:      op.pos.LastTick,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Ticker < views[j].Ticker })
	return views
}

// RecentDecisions returns the retained decision tail, newest last.
func (e *Engine) RecentDecisions() []DecisionView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]DecisionView, len(e.decisions))
	copy(out, e.decisions)
	return out
}

// StatsSnapshot copies the running counters.
func (e *Engine) StatsSnapshot() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := e.stats
	stats.Setups = copyCounts(e.stats.Setups)
	stats.Skips = copyCounts(e.stats.Skips)
	stats.Closed = copyCounts(e.stats.Closed)
	return stats
}

// Status assembles the status endpoint payload.
func (e *Engine) Status() StatusView {
	stats := e.StatsSnapshot()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return StatusView{
		StartedAt:     e.startedAt,
		Tickers:       append([]string(nil), e.cfg.Tickers...),
		OpenPositions: len(e.open),
		Stats:         stats,
	}
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
