package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

var (
	ErrNoChain       = errors.New("no chain loaded for ticker")
	ErrStrikeMissing = errors.New("strike not quoted in chain")
)

// OptionQuote is one strike's bid/ask per option type.
type OptionQuote struct {
	PutBid  float64
	PutAsk  float64
	CallBid float64
	CallAsk float64
}

// Chain is an immutable quote snapshot for one ticker.
type Chain struct {
	Ticker    string
	Timestamp time.Time
	ByStrike  map[float64]OptionQuote
}

// ChainSource answers spread credit queries from the most recently supplied
// chain per ticker. The feed swaps chains in between evaluation cycles; the
// selector only ever reads. Implements pin.QuoteSource.
type ChainSource struct {
	mu     sync.RWMutex
	chains map[string]*Chain
	logger *zap.Logger
}

// Compile-time interface verification
var _ pin.QuoteSource = (*ChainSource)(nil)

func NewChainSource(logger *zap.Logger) *ChainSource {
	return &ChainSource{
		chains: make(map[string]*Chain),
		logger: logger,
	}
}

// Update replaces the ticker's current chain.
func (s *ChainSource) Update(chain *Chain) {
	s.mu.Lock()
	s.chains[chain.Ticker] = chain
	s.mu.Unlock()

	s.logger.Debug("chain updated",
		zap.String("ticker", chain.Ticker),
		zap.Int("strikes", len(chain.ByStrike)),
	)
}

// Current returns the ticker's latest chain, or nil.
func (s *ChainSource) Current(ticker string) *Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chains[ticker]
}

// VerticalCredit returns the credit collectable for selling the short
// strike and buying the long strike: short bid minus long ask.
func (s *ChainSource) VerticalCredit(ctx context.Context, ticker string, side pin.Side, shortStrike, longStrike float64) (float64, error) {
	chain := s.Current(ticker)
	if chain == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoChain, ticker)
	}
	shortQ, ok := chain.ByStrike[shortStrike]
	if !ok {
		return 0, fmt.Errorf("%w: %s %v", ErrStrikeMissing, ticker, shortStrike)
	}
	longQ, ok := chain.ByStrike[longStrike]
	if !ok {
		return 0, fmt.Errorf("%w: %s %v", ErrStrikeMissing, ticker, longStrike)
	}

	if side == pin.SideCall {
		return shortQ.CallBid - longQ.CallAsk, nil
	}
	return shortQ.PutBid - longQ.PutAsk, nil
}

// MarkToClose prices buying back an open structure at the chain's current
// quotes: pay the short leg's ask, receive the long leg's bid. For a condor
// both wings are summed.
func MarkToClose(chain *Chain, setup pin.Setup) (float64, error) {
	if chain == nil {
		return 0, ErrNoChain
	}
	switch s := setup.(type) {
	case pin.Vertical:
		return legMark(chain, s.Side, s.ShortStrike, s.LongStrike)
	case pin.Condor:
		putMark, err := legMark(chain, pin.SidePut, s.PutShort, s.PutLong)
		if err != nil {
			return 0, err
		}
		callMark, err := legMark(chain, pin.SideCall, s.CallShort, s.CallLong)
		if err != nil {
			return 0, err
		}
		return putMark + callMark, nil
	default:
		return 0, fmt.Errorf("setup %v has no mark", setup.Strategy())
	}
}

func legMark(chain *Chain, side pin.Side, shortStrike, longStrike float64) (float64, error) {
	shortQ, ok := chain.ByStrike[shortStrike]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrStrikeMissing, shortStrike)
	}
	longQ, ok := chain.ByStrike[longStrike]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrStrikeMissing, longStrike)
	}
	if side == pin.SideCall {
		return shortQ.CallAsk - longQ.CallBid, nil
	}
	return shortQ.PutAsk - longQ.PutBid, nil
}
