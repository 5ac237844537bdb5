package monitor

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

// State is the position's lifecycle stage.
type State int

const (
	StateOpen State = iota
	StateTrailing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateTrailing:
		return "trailing_active"
	case StateClosed:
		return "closed"
	default:
		return "open"
	}
}

// CloseReason records which exit rule terminated the position.
type CloseReason int

const (
	ReasonNone CloseReason = iota
	ReasonEmergencyStop
	ReasonProfitTarget
	ReasonTrailingStop
	ReasonStopLoss
	ReasonTimeExit
)

func (r CloseReason) String() string {
	switch r {
	case ReasonEmergencyStop:
		return "emergency_stop"
	case ReasonProfitTarget:
		return "profit_target"
	case ReasonTrailingStop:
		return "trailing_stop"
	case ReasonStopLoss:
		return "stop_loss"
	case ReasonTimeExit:
		return "time_exit"
	default:
		return "none"
	}
}

var ErrNotTradable = errors.New("setup carries no position to open")

// Position is one open credit structure under monitoring. A position has
// exactly one logical owner advancing it through ticks in time order; all
// fields are mutated only by Monitor.Evaluate.
type Position struct {
	ID          string
	Ticker      string
	Strategy    pin.Strategy
	EntryCredit float64
	Width       float64
	OpenedAt    time.Time

	State        State
	CloseReason  CloseReason
	ClosedAt     time.Time
	HighWaterPct float64 // best profit seen while trailing, percent points
	FloorPct     float64 // trailing floor; ratchets up, never relaxes

	LastTick    time.Time
	staleStreak int
}

// Open creates a position from a tradable setup. Skip setups return
// ErrNotTradable.
func Open(setup pin.Setup, openedAt time.Time) (*Position, error) {
	switch s := setup.(type) {
	case pin.Vertical:
		return &Position{
			ID:          uuid.NewString(),
			Ticker:      s.Ticker,
			Strategy:    s.Strategy(),
			EntryCredit: s.Credit,
			Width:       s.Width(),
			OpenedAt:    openedAt,
		}, nil
	case pin.Condor:
		return &Position{
			ID:          uuid.NewString(),
			Ticker:      s.Ticker,
			Strategy:    s.Strategy(),
			EntryCredit: s.Credit,
			Width:       s.WingWidth(),
			OpenedAt:    openedAt,
		}, nil
	default:
		return nil, ErrNotTradable
	}
}

// ProfitPct converts a mark into percent points of entry credit. Positive
// means the spread got cheaper to buy back.
func (p *Position) ProfitPct(mark float64) float64 {
	if p.EntryCredit == 0 {
		return 0
	}
	return (p.EntryCredit - mark) / p.EntryCredit * 100
}
