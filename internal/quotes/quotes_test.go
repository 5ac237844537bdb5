package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

func testChain() *Chain {
	return &Chain{
		Ticker:    "SPX",
		Timestamp: time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC),
		ByStrike: map[float64]OptionQuote{
			6945: {PutBid: 1.10, PutAsk: 1.30, CallBid: 38.0, CallAsk: 39.0},
			6955: {PutBid: 3.40, PutAsk: 3.60, CallBid: 29.5, CallAsk: 30.5},
		},
	}
}

func TestVerticalCredit(t *testing.T) {
	src := NewChainSource(zap.NewNop())
	src.Update(testChain())

	credit, err := src.VerticalCredit(context.Background(), "SPX", pin.SidePut, 6955, 6945)
	if err != nil {
		t.Fatal(err)
	}
	// short 6955 put bid 3.40 minus long 6945 put ask 1.30
	want := 3.40 - 1.30
	if credit != want {
		t.Errorf("expected credit %v, got %v", want, credit)
	}
}

func TestVerticalCreditMissingChain(t *testing.T) {
	src := NewChainSource(zap.NewNop())
	if _, err := src.VerticalCredit(context.Background(), "NDX", pin.SidePut, 6955, 6945); !errors.Is(err, ErrNoChain) {
		t.Fatalf("expected ErrNoChain, got %v", err)
	}
}

func TestVerticalCreditMissingStrike(t *testing.T) {
	src := NewChainSource(zap.NewNop())
	src.Update(testChain())
	if _, err := src.VerticalCredit(context.Background(), "SPX", pin.SidePut, 6955, 6900); !errors.Is(err, ErrStrikeMissing) {
		t.Fatalf("expected ErrStrikeMissing, got %v", err)
	}
}

func TestMarkToCloseVertical(t *testing.T) {
	mark, err := MarkToClose(testChain(), pin.Vertical{
		Ticker: "SPX", Side: pin.SidePut, ShortStrike: 6955, LongStrike: 6945, Credit: 2.10,
	})
	if err != nil {
		t.Fatal(err)
	}
	// buy back short at 3.60 ask, sell long at 1.10 bid
	want := 3.60 - 1.10
	if mark != want {
		t.Errorf("expected mark %v, got %v", want, mark)
	}
}

func TestMarkToCloseSkipHasNoMark(t *testing.T) {
	if _, err := MarkToClose(testChain(), pin.Skip{Ticker: "SPX"}); err == nil {
		t.Fatal("expected error for skip setup")
	}
}
