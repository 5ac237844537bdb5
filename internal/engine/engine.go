package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
	"github.com/dgnsrekt/gexpin-engine/internal/feed"
	"github.com/dgnsrekt/gexpin-engine/internal/gex"
	"github.com/dgnsrekt/gexpin-engine/internal/monitor"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
	"github.com/dgnsrekt/gexpin-engine/internal/quotes"
	"github.com/dgnsrekt/gexpin-engine/internal/session"
)

// Sink receives engine events: one setup per evaluation cycle and one
// decision per monitored tick. Implementations must not block.
type Sink interface {
	RecordSetup(at time.Time, setup pin.Setup)
	RecordExit(p *monitor.Position, d monitor.Decision)
}

// EventSource yields recorded session events in stored order.
type EventSource interface {
	Next(ctx context.Context) (*feed.Event, error)
}

// openPosition pairs a monitored position with the setup whose legs price
// its mark.
type openPosition struct {
	pos        *monitor.Position
	setup      pin.Setup
	lastProfit float64
}

// Engine runs the snapshot pipeline (rank, analyze, select) and drives the
// exit state machine for open positions. One position per ticker is held at
// a time; distinct tickers are independent and may be fed from concurrent
// streams. All methods are safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	clock    *session.Clock
	quotes   *quotes.ChainSource
	selector *pin.Selector
	monitor  *monitor.Monitor
	logger   *zap.Logger
	sinks    []Sink

	cutoffHour   int
	cutoffMinute int

	mu        sync.RWMutex
	open      map[string]*openPosition // keyed by ticker
	decisions []DecisionView
	stats     Stats
	startedAt time.Time
}

// Stats are the engine's running counters.
type Stats struct {
	Snapshots   int            `json:"snapshots"`
	Chains      int            `json:"chains"`
	Setups      map[string]int `json:"setups"`
	Skips       map[string]int `json:"skips"`
	Opened      int            `json:"opened"`
	Closed      map[string]int `json:"closed"`
	RealizedPnL float64        `json:"realized_pnl"`
}

func New(cfg *config.Config, logger *zap.Logger, sinks ...Sink) (*Engine, error) {
	cutoffHour, cutoffMinute, err := cfg.Competing.CutoffClock()
	if err != nil {
		return nil, err
	}

	chainSource := quotes.NewChainSource(logger)

	return &Engine{
		cfg:          cfg,
		clock:        session.NewClock(cfg.Engine.Timezone),
		quotes:       chainSource,
		selector:     pin.NewSelector(chainSource, logger),
		monitor:      monitor.NewMonitor(cfg.Exit, logger),
		logger:       logger,
		sinks:        sinks,
		cutoffHour:   cutoffHour,
		cutoffMinute: cutoffMinute,
		open:         make(map[string]*openPosition),
		stats: Stats{
			Setups: make(map[string]int),
			Skips:  make(map[string]int),
			Closed: make(map[string]int),
		},
		startedAt: time.Now().UTC(),
	}, nil
}

// Clock exposes the engine's session clock.
func (e *Engine) Clock() *session.Clock { return e.clock }

// AddSink attaches a sink after construction. Sinks must be attached
// before the first event is processed.
func (e *Engine) AddSink(sink Sink) {
	e.sinks = append(e.sinks, sink)
}

// EvaluateSnapshot runs one full evaluation cycle over a gamma profile and
// returns the resulting setup. An empty profile is not fatal: the cycle is
// skipped and logged, matching a collector hiccup at the data source.
func (e *Engine) EvaluateSnapshot(ctx context.Context, profile *gex.GammaProfile) (pin.Setup, error) {
	ic, ok := e.cfg.Instrument(profile.Ticker)
	if !ok {
		return nil, fmt.Errorf("no instrument configuration for %s", profile.Ticker)
	}

	var setup pin.Setup
	peaks, err := gex.RankPeaks(profile, e.cfg.Competing.TopPeaks)
	switch {
	case errors.Is(err, gex.ErrInsufficientData):
		e.logger.Warn("evaluation cycle skipped",
			zap.String("ticker", profile.Ticker),
			zap.Error(err),
		)
		setup = pin.Skip{Ticker: profile.Ticker, Reason: pin.SkipInsufficientData, Detail: err.Error()}
	case err != nil:
		return nil, err
	default:
		var analysis pin.Analysis
		if len(peaks) < 2 {
			// A single usable strike cannot compete with itself.
			analysis = pin.Analysis{Action: pin.ActionProceed, PeakA: peaks[0], Chosen: peaks[0]}
		} else {
			pastCutoff := e.clock.PastCutoff(profile.Timestamp, e.cutoffHour, e.cutoffMinute)
			analysis = pin.AnalyzeCompeting(peaks[0], peaks[1], profile.Spot, pastCutoff,
				e.cfg.Competing.ScoreRatioThreshold, ic.StrikeIncrement)
		}

		setup, err = e.selector.Select(ctx, profile.Ticker, analysis, profile.Spot, ic)
		if err != nil {
			return nil, err
		}
	}

	e.recordSetup(profile.Timestamp, setup)
	for _, sink := range e.sinks {
		sink.RecordSetup(profile.Timestamp, setup)
	}
	return setup, nil
}

// OpenFromSetup opens a position for a tradable setup unless the ticker
// already has one. Returns (nil, nil) when the setup is a skip or the
// ticker is busy.
func (e *Engine) OpenFromSetup(setup pin.Setup, at time.Time) (*monitor.Position, error) {
	if setup.Strategy() == pin.StrategySkip {
		return nil, nil
	}

	pos, err := monitor.Open(setup, at)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.open[pos.Ticker]; busy {
		return nil, nil
	}
	e.open[pos.Ticker] = &openPosition{pos: pos, setup: setup}
	e.stats.Opened++

	e.logger.Info("position opened",
		zap.String("position", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("strategy", pos.Strategy.String()),
		zap.Float64("entry_credit", pos.EntryCredit),
		zap.Float64("width", pos.Width),
	)
	return pos, nil
}

// HandleChain ingests one quote snapshot: the chain becomes current for
// credit queries, and the ticker's open position, if any, is marked to
// market and advanced through the exit state machine.
func (e *Engine) HandleChain(ctx context.Context, chain *quotes.Chain, volatility float64) (*monitor.Decision, error) {
	e.quotes.Update(chain)

	e.mu.Lock()
	e.stats.Chains++
	op, ok := e.open[chain.Ticker]
	e.mu.Unlock()
	if !ok {
		return nil, nil
	}

	mark, err := quotes.MarkToClose(chain, op.setup)
	if err != nil {
		// A chain missing our strikes is a missed tick, not an exit signal.
		e.logger.Warn("mark unavailable, tick skipped",
			zap.String("position", op.pos.ID),
			zap.Error(err),
		)
		return nil, nil
	}

	decision := e.monitor.Evaluate(op.pos, monitor.Tick{
		Timestamp:    chain.Timestamp,
		Mark:         mark,
		Volatility:   volatility,
		SessionClose: e.clock.SessionClose(chain.Timestamp),
	})

	e.mu.Lock()
	op.lastProfit = decision.ProfitPct
	e.decisions = append(e.decisions, newDecisionView(op.pos, decision))
	if depth := e.cfg.Server.DecisionDepth; depth > 0 && len(e.decisions) > depth {
		e.decisions = e.decisions[len(e.decisions)-depth:]
	}
	if decision.Close {
		e.stats.Closed[decision.Reason.String()]++
		e.stats.RealizedPnL += op.pos.EntryCredit * decision.ProfitPct / 100
		delete(e.open, chain.Ticker)
	}
	e.mu.Unlock()

	for _, sink := range e.sinks {
		sink.RecordExit(op.pos, decision)
	}

	if decision.Close {
		e.logger.Info("position closed",
			zap.String("position", op.pos.ID),
			zap.String("reason", decision.Reason.String()),
			zap.String("rule", decision.Rule),
			zap.Float64("profit_pct", decision.ProfitPct),
		)
	}
	return &decision, nil
}

// Run consumes a session event stream until it is exhausted or the context
// ends. Replay of the same stream produces identical transitions: every
// time comparison uses event timestamps, never the wall clock.
func (e *Engine) Run(ctx context.Context, source EventSource) (*Stats, error) {
	for {
		event, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			stats := e.StatsSnapshot()
			return &stats, nil
		}
		if err != nil {
			return nil, err
		}

		switch event.Type {
		case "gex":
			profile, err := event.Gex.Profile(e.cfg.Engine.ExposureFrom)
			if err != nil {
				e.logger.Warn("bad gex record", zap.Error(err))
				continue
			}
			e.mu.Lock()
			e.stats.Snapshots++
			e.mu.Unlock()

			setup, err := e.EvaluateSnapshot(ctx, profile)
			if err != nil {
				return nil, err
			}
			if _, err := e.OpenFromSetup(setup, profile.Timestamp); err != nil && !errors.Is(err, monitor.ErrNotTradable) {
				return nil, err
			}

		case "chain":
			if _, err := e.HandleChain(ctx, event.Chain.Chain(), event.Chain.Volatility); err != nil {
				return nil, err
			}
		}
	}
}

func (e *Engine) recordSetup(at time.Time, setup pin.Setup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if skip, ok := setup.(pin.Skip); ok {
		e.stats.Skips[skip.Reason.String()]++
		return
	}
	e.stats.Setups[setup.Strategy().String()]++
}
