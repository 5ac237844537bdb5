package pin

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/config"
	"github.com/dgnsrekt/gexpin-engine/internal/gex"
)

// QuoteSource supplies the credit obtainable for a spread at the given
// strikes: short leg bid minus long leg ask. Implementations live outside
// this package (broker adapters, replay sources).
type QuoteSource interface {
	VerticalCredit(ctx context.Context, ticker string, side Side, shortStrike, longStrike float64) (float64, error)
}

// Selector turns an analyzer verdict into a concrete setup: strikes, width
// and credit, or a Skip when the quotes do not justify the trade.
type Selector struct {
	quotes QuoteSource
	logger *zap.Logger
}

func NewSelector(quotes QuoteSource, logger *zap.Logger) *Selector {
	return &Selector{quotes: quotes, logger: logger}
}

// Select computes the setup for one evaluation cycle.
func (s *Selector) Select(ctx context.Context, ticker string, analysis Analysis, spot float64, ic config.InstrumentConfig) (Setup, error) {
	switch analysis.Action {
	case ActionSkip:
		return Skip{Ticker: ticker, Reason: SkipCompetingPastCutoff,
			Detail: fmt.Sprintf("competing peaks %v/%v after cutoff", analysis.PeakA.Strike, analysis.PeakB.Strike)}, nil
	case ActionCondor:
		return s.buildCondor(ctx, ticker, analysis.CondorCenter, ic)
	default:
		return s.buildVertical(ctx, ticker, analysis.Chosen, spot, ic)
	}
}

func (s *Selector) buildVertical(ctx context.Context, ticker string, peak gex.Peak, spot float64, ic config.InstrumentConfig) (Setup, error) {
	zone, policy := ClassifyZone(peak.Distance, ic)
	if zone == ZoneBeyond {
		return Skip{Ticker: ticker, Reason: SkipBeyondFar,
			Detail: fmt.Sprintf("pin %v is %.2f points from spot", peak.Strike, peak.Distance)}, nil
	}

	// The pin acts as a magnet: with the pin above spot price drifts up, so
	// sell puts below; with the pin below spot, sell calls above.
	side := SidePut
	shortStrike := peak.Strike - policy.Offset
	if peak.Strike < spot {
		side = SideCall
		shortStrike = peak.Strike + policy.Offset
	}
	shortStrike = roundToIncrement(shortStrike, ic.StrikeIncrement)

	longStrike := shortStrike - policy.Width
	if side == SideCall {
		longStrike = shortStrike + policy.Width
	}

	credit, err := s.quotes.VerticalCredit(ctx, ticker, side, shortStrike, longStrike)
	if err != nil {
		return Skip{Ticker: ticker, Reason: SkipQuoteUnavailable, Detail: err.Error()}, nil
	}

	if reason, detail := checkCredit(credit, policy, shortStrike, longStrike); reason != SkipNone {
		s.logger.Debug("setup rejected",
			zap.String("ticker", ticker),
			zap.String("zone", zone.String()),
			zap.Float64("credit", credit),
			zap.String("reason", reason.String()),
		)
		return Skip{Ticker: ticker, Reason: reason, Detail: detail}, nil
	}

	return Vertical{
		Ticker:      ticker,
		Side:        side,
		ShortStrike: shortStrike,
		LongStrike:  longStrike,
		Credit:      credit,
		Zone:        zone,
		PeakStrike:  peak.Strike,
		PeakRank:    peak.Rank,
	}, nil
}

func (s *Selector) buildCondor(ctx context.Context, ticker string, center float64, ic config.InstrumentConfig) (Setup, error) {
	putShort := roundToIncrement(center-ic.CondorWingOffset, ic.StrikeIncrement)
	putLong := putShort - ic.CondorWingWidth
	callShort := roundToIncrement(center+ic.CondorWingOffset, ic.StrikeIncrement)
	callLong := callShort + ic.CondorWingWidth

	putCredit, err := s.quotes.VerticalCredit(ctx, ticker, SidePut, putShort, putLong)
	if err != nil {
		return Skip{Ticker: ticker, Reason: SkipQuoteUnavailable, Detail: err.Error()}, nil
	}
	callCredit, err := s.quotes.VerticalCredit(ctx, ticker, SideCall, callShort, callLong)
	if err != nil {
		return Skip{Ticker: ticker, Reason: SkipQuoteUnavailable, Detail: err.Error()}, nil
	}

	// Each wing must price like a real credit spread on its own.
	for _, wing := range []struct {
		credit float64
		short  float64
		long   float64
	}{{putCredit, putShort, putLong}, {callCredit, callShort, callLong}} {
		width := math.Abs(wing.short - wing.long)
		if wing.credit <= 0 {
			return Skip{Ticker: ticker, Reason: SkipLowCredit,
				Detail: fmt.Sprintf("wing %v/%v quoted %.2f", wing.short, wing.long, wing.credit)}, nil
		}
		if wing.credit >= width {
			return Skip{Ticker: ticker, Reason: SkipPricingAnomaly,
				Detail: fmt.Sprintf("wing credit %.2f >= width %.2f", wing.credit, width)}, nil
		}
	}

	total := putCredit + callCredit
	if total < ic.CondorMinCredit {
		return Skip{Ticker: ticker, Reason: SkipLowCredit,
			Detail: fmt.Sprintf("condor credit %.2f below minimum %.2f", total, ic.CondorMinCredit)}, nil
	}

	return Condor{
		Ticker:    ticker,
		Center:    center,
		PutShort:  putShort,
		PutLong:   putLong,
		CallShort: callShort,
		CallLong:  callLong,
		Credit:    total,
	}, nil
}

// checkCredit enforces the per-zone credit band and the physical ceiling:
// a credit at or above the spread width can never be realized at expiration
// and must be rejected outright, never clamped.
func checkCredit(credit float64, policy config.ZonePolicy, shortStrike, longStrike float64) (SkipReason, string) {
	width := math.Abs(shortStrike - longStrike)
	if credit >= width {
		return SkipPricingAnomaly, fmt.Sprintf("credit %.2f >= width %.2f", credit, width)
	}
	if credit <= 0 || credit < policy.MinCredit {
		return SkipLowCredit, fmt.Sprintf("credit %.2f below minimum %.2f", credit, policy.MinCredit)
	}
	if policy.MaxCredit > 0 && credit > policy.MaxCredit {
		return SkipRichCredit, fmt.Sprintf("credit %.2f above band %.2f", credit, policy.MaxCredit)
	}
	return SkipNone, ""
}
