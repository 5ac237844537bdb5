package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexpin-engine/internal/engine"
	"github.com/dgnsrekt/gexpin-engine/internal/pin"
)

type stubView struct {
	status    engine.StatusView
	positions []engine.PositionView
	decisions []engine.DecisionView
}

func (s *stubView) Status() engine.StatusView              { return s.status }
func (s *stubView) OpenPositions() []engine.PositionView   { return s.positions }
func (s *stubView) RecentDecisions() []engine.DecisionView { return s.decisions }

func testServer(view EngineView) *Server {
	return New(view, ":0", 0, zap.NewNop())
}

func TestStatusEndpoint(t *testing.T) {
	view := &stubView{
		status: engine.StatusView{
			Tickers:       []string{"SPX"},
			OpenPositions: 1,
		},
	}
	srv := testServer(view)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got engine.StatusView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.OpenPositions != 1 || len(got.Tickers) != 1 {
		t.Errorf("unexpected status payload: %+v", got)
	}
}

func TestPositionsEndpoint(t *testing.T) {
	view := &stubView{
		positions: []engine.PositionView{{
			ID: "abc", Ticker: "SPX", Strategy: "put_spread", EntryCredit: 2.10,
		}},
	}
	srv := testServer(view)

	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)

	var got []engine.PositionView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Ticker != "SPX" {
		t.Errorf("unexpected positions payload: %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(&stubView{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

func TestWebSocketStream(t *testing.T) {
	srv := testServer(&stubView{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Give the hub time to register the client before publishing.
	deadline := time.Now().Add(time.Second)
	for srv.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	at := time.Date(2025, 11, 14, 14, 30, 0, 0, time.UTC)
	srv.RecordSetup(at, pin.Skip{Ticker: "SPX", Reason: pin.SkipBeyondFar})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("stream payload not JSON: %v", err)
	}
	if event["kind"] != "setup" || event["skip_reason"] != "beyond_far_zone" {
		t.Errorf("unexpected stream event: %v", event)
	}
}

func TestStreamRateLimit(t *testing.T) {
	srv := New(&stubView{}, ":0", 1, zap.NewNop())

	at := time.Date(2025, 11, 14, 14, 30, 0, 0, time.UTC)
	// Burst past the limiter; excess events must be dropped, not queued.
	for i := 0; i < 50; i++ {
		srv.RecordSetup(at, pin.Skip{Ticker: "SPX", Reason: pin.SkipBeyondFar})
	}
	if queued := len(srv.hub.broadcast); queued > 2 {
		t.Errorf("limiter should drop burst events, %d queued", queued)
	}
}
