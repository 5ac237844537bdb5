package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/monitor"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

// SetupEvent is the journaled form of an evaluation cycle's outcome. The
// tagged setup variants are flattened into one record shape per line.
type SetupEvent struct {
	Kind        string    `json:"kind"` // always "setup"
	Time        time.Time `json:"time"`
	Ticker      string    `json:"ticker"`
	Strategy    string    `json:"strategy"`
	SkipReason  string    `json:"skip_reason,omitempty"`
	SkipDetail  string    `json:"skip_detail,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	ShortStrike float64   `json:"short_strike,omitempty"`
	LongStrike  float64   `json:"long_strike,omitempty"`
	PutShort    float64   `json:"put_short,omitempty"`
	PutLong     float64   `json:"put_long,omitempty"`
	CallShort   float64   `json:"call_short,omitempty"`
	CallLong    float64   `json:"call_long,omitempty"`
	Credit      float64   `json:"credit,omitempty"`
	PeakStrike  float64   `json:"peak_strike,omitempty"`
	PeakRank    int       `json:"peak_rank,omitempty"`
}

// NewSetupEvent flattens a setup for the journal.
func NewSetupEvent(at time.Time, setup pin.Setup) SetupEvent {
	event := SetupEvent{
		Kind:     "setup",
		Time:     at.UTC(),
		Strategy: setup.Strategy().String(),
	}
	switch s := setup.(type) {
	case pin.Skip:
		event.Ticker = s.Ticker
		event.SkipReason = s.Reason.String()
		event.SkipDetail = s.Detail
	case pin.Vertical:
		event.Ticker = s.Ticker
		event.Zone = s.Zone.String()
		event.ShortStrike = s.ShortStrike
		event.LongStrike = s.LongStrike
		event.Credit = s.Credit
		event.PeakStrike = s.PeakStrike
		event.PeakRank = s.PeakRank
	case pin.Condor:
		event.Ticker = s.Ticker
		event.PutShort = s.PutShort
		event.PutLong = s.PutLong
		event.CallShort = s.CallShort
		event.CallLong = s.CallLong
		event.Credit = s.Credit
	}
	return event
}

// ExitEvent is the journaled form of a monitor decision.
type ExitEvent struct {
	Kind       string    `json:"kind"` // always "exit"
	Time       time.Time `json:"time"`
	PositionID string    `json:"position_id"`
	Ticker     string    `json:"ticker"`
	Strategy   string    `json:"strategy"`
	State      string    `json:"state"`
	Close      bool      `json:"close"`
	Reason     string    `json:"reason,omitempty"`
	Rule       string    `json:"rule,omitempty"`
	ProfitPct  float64   `json:"profit_pct"`
	Stale      bool      `json:"stale,omitempty"`
}

// NewExitEvent pairs a decision with its position for the journal.
func NewExitEvent(p *monitor.Position, d monitor.Decision) ExitEvent {
	event := ExitEvent{
		Kind:       "exit",
		Time:       d.Timestamp.UTC(),
		PositionID: p.ID,
		Ticker:     p.Ticker,
		Strategy:   p.Strategy.String(),
		State:      d.State.String(),
		Close:      d.Close,
		Rule:       d.Rule,
		ProfitPct:  d.ProfitPct,
		Stale:      d.Stale,
	}
	if d.Reason != monitor.ReasonNone {
		event.Reason = d.Reason.String()
	}
	return event
}

// Journal is an append-only JSONL log of setups and exit decisions, one
// event per line, optionally zstd-compressed.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	zstd   *zstd.Encoder
	out    io.Writer
	logger *zap.Logger
}

// Open creates (or truncates) the journal file for a session date.
func Open(dir, date string, compress bool, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	name := date + ".jsonl"
	if compress {
		name += ".zst"
	}
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	j := &Journal{file: file, out: file, logger: logger}
	if compress {
		enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		j.zstd = enc
		j.out = enc
	}

	logger.Info("journal opened", zap.String("path", path))
	return j, nil
}

// Record appends one event line.
func (j *Journal) Record(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.out.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.zstd != nil {
		if err := j.zstd.Close(); err != nil {
			_ = j.file.Close()
			return err
		}
	}
	return j.file.Close()
}
