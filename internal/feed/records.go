package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgnsrekt/gexpin-engine/internal/gex"
	"github.com/dgnsrekt/gexpin-engine/internal/quotes"
)

// GexRecord is one recorded gamma-exposure snapshot line. Strikes is the
// raw [[strike, gex_volume, gex_oi], ...] array as captured upstream.
type GexRecord struct {
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Ticker    string          `json:"ticker"`
	Spot      float64         `json:"spot"`
	ZeroGamma float64         `json:"zero_gamma"`
	Strikes   json.RawMessage `json:"strikes"`
}

// Profile decodes the strike array into a GammaProfile. exposureFrom picks
// the volume-based or open-interest-based exposure column.
func (r *GexRecord) Profile(exposureFrom string) (*gex.GammaProfile, error) {
	var rows [][]float64
	if err := json.Unmarshal(r.Strikes, &rows); err != nil {
		return nil, fmt.Errorf("decoding strikes: %w", err)
	}

	col := 1 // volume
	if exposureFrom == "oi" {
		col = 2
	}

	exposure := make(map[float64]float64, len(rows))
	for i, row := range rows {
		if len(row) <= col {
			return nil, fmt.Errorf("strike row %d has %d columns", i, len(row))
		}
		exposure[row[0]] = row[col]
	}

	return &gex.GammaProfile{
		Ticker:    r.Ticker,
		Spot:      r.Spot,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Exposure:  exposure,
	}, nil
}

// StrikeQuote is one strike's bid/ask pair per option type in a recorded
// chain line.
type StrikeQuote struct {
	Strike  float64 `json:"strike"`
	PutBid  float64 `json:"put_bid"`
	PutAsk  float64 `json:"put_ask"`
	CallBid float64 `json:"call_bid"`
	CallAsk float64 `json:"call_ask"`
}

// ChainRecord is one recorded quote snapshot line, paired with the
// volatility index reading at capture time.
type ChainRecord struct {
	Timestamp  int64         `json:"timestamp"`
	Ticker     string        `json:"ticker"`
	Volatility float64       `json:"vol"`
	Quotes     []StrikeQuote `json:"quotes"`
}

// Chain converts the record into a quote chain.
func (r *ChainRecord) Chain() *quotes.Chain {
	byStrike := make(map[float64]quotes.OptionQuote, len(r.Quotes))
	for _, q := range r.Quotes {
		byStrike[q.Strike] = quotes.OptionQuote{
			PutBid:  q.PutBid,
			PutAsk:  q.PutAsk,
			CallBid: q.CallBid,
			CallAsk: q.CallAsk,
		}
	}
	return &quotes.Chain{
		Ticker:    r.Ticker,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		ByStrike:  byStrike,
	}
}

// Event is one line of a recorded session stream.
type Event struct {
	Type  string       `json:"type"` // "gex" or "chain"
	Gex   *GexRecord   `json:"gex,omitempty"`
	Chain *ChainRecord `json:"chain,omitempty"`
}
