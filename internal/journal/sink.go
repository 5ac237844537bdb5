package journal

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/monitor"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

// Sink adapts a Journal to the engine's event sink. Write failures are
// logged rather than propagated; a full disk must not stop the monitor.
type Sink struct {
	journal *Journal
	logger  *zap.Logger
}

func NewSink(j *Journal, logger *zap.Logger) *Sink {
	return &Sink{journal: j, logger: logger}
}

func (s *Sink) RecordSetup(at time.Time, setup pin.Setup) {
	if err := s.journal.Record(NewSetupEvent(at, setup)); err != nil {
		s.logger.Error("journaling setup", zap.Error(err))
	}
}

func (s *Sink) RecordExit(p *monitor.Position, d monitor.Decision) {
	if err := s.journal.Record(NewExitEvent(p, d)); err != nil {
		s.logger.Error("journaling decision", zap.Error(err))
	}
}
