package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

func testHub(opts ...HubOption) *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func runHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	time.Sleep(20 * time.Millisecond)
}

func event(amount float64, merchant string, score float64, fraud bool) *Event {
	p := risk.Prediction{RiskScore: score}
	if fraud {
		p.Prediction = 1
	}
	rec := risk.Recommend(p)
	return NewAnalysisEvent(SourceFeed, &risk.Analysis{
		Transaction:    transaction.Transaction{Amount: amount, MerchantType: merchant},
		Prediction:     p,
		Recommendation: rec,
	})
}

// ---------------------------------------------------------------------------
// Subscription filters
// ---------------------------------------------------------------------------

func TestSubscription_EmptyMatchesEverything(t *testing.T) {
	var sub Subscription
	assert.True(t, sub.Matches(event(0.01, "", 0, false)))
	assert.True(t, sub.Matches(event(9000, "online", 1, true)))
}

func TestSubscription_AlertLevels(t *testing.T) {
	sub := Subscription{AlertLevels: []risk.AlertLevel{risk.AlertHigh}}
	assert.True(t, sub.Matches(event(100, "atm", 0.9, true)))
	assert.False(t, sub.Matches(event(100, "atm", 0.2, false)))
}

func TestSubscription_MerchantTypesIgnoreCase(t *testing.T) {
	sub := Subscription{MerchantTypes: []string{"Online", "atm"}}
	assert.True(t, sub.Matches(event(10, "online", 0, false)))
	assert.True(t, sub.Matches(event(10, "ATM", 0, false)))
	assert.False(t, sub.Matches(event(10, "grocery", 0, false)))
}

func TestSubscription_Thresholds(t *testing.T) {
	sub := Subscription{MinAmount: 100, MinRiskScore: 0.5}
	assert.True(t, sub.Matches(event(100, "gas", 0.5, false)))
	assert.False(t, sub.Matches(event(99.99, "gas", 0.9, false)))
	assert.False(t, sub.Matches(event(500, "gas", 0.49, false)))
}

func TestSubscription_FraudOnly(t *testing.T) {
	sub := Subscription{FraudOnly: true}
	assert.True(t, sub.Matches(event(10, "gas", 0.1, true)))
	assert.False(t, sub.Matches(event(10, "gas", 0.1, false)))
}

func TestNewAnalysisEvent(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	e := NewAnalysisEvent(SourceAPI, &risk.Analysis{
		Transaction:    transaction.Transaction{Amount: 42},
		Prediction:     risk.Prediction{ID: "anl_1", EvaluatedAt: at},
		Recommendation: risk.Recommend(risk.Prediction{}),
	})

	assert.Equal(t, EventAnalysis, e.Type)
	assert.Equal(t, SourceAPI, e.Source)
	assert.Equal(t, "APPROVE", e.Recommendation)
	assert.Equal(t, risk.AlertLow, e.AlertLevel)
	assert.Equal(t, at, e.Timestamp)
}

// ---------------------------------------------------------------------------
// Hub lifecycle
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	assert.Equal(t, Stats{}, testHub().Stats())
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	runHub(t, h)

	client := &Client{hub: h, send: make(chan []byte, 8)}
	h.register <- client
	time.Sleep(20 * time.Millisecond)

	stats := h.Stats()
	assert.Equal(t, 1, stats.ConnectedClients)
	assert.Equal(t, int64(1), stats.PeakClients)
	assert.Equal(t, 1, h.ClientCount())

	h.unregister <- client
	time.Sleep(20 * time.Millisecond)

	stats = h.Stats()
	assert.Equal(t, 0, stats.ConnectedClients)
	assert.Equal(t, int64(1), stats.PeakClients)
	assert.Equal(t, int64(1), stats.TotalClients)
}

func TestHub_BroadcastToMatchingClients(t *testing.T) {
	h := testHub()
	runHub(t, h)

	all := &Client{hub: h, send: make(chan []byte, 8)}
	highOnly := &Client{hub: h, send: make(chan []byte, 8), sub: Subscription{AlertLevels: []risk.AlertLevel{risk.AlertHigh}}}
	h.register <- all
	h.register <- highOnly
	time.Sleep(20 * time.Millisecond)

	h.Broadcast(event(20, "grocery", 0.3, false))

	select {
	case msg := <-all.send:
		var got Event
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, EventAnalysis, got.Type)
		assert.Equal(t, risk.AlertLow, got.AlertLevel)
		assert.Equal(t, 20.0, got.Transaction.Amount)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}

	time.Sleep(20 * time.Millisecond)
	select {
	case <-highOnly.send:
		t.Fatal("filtered client should not receive low alert")
	default:
	}
	assert.Equal(t, int64(1), h.Stats().TotalEvents)
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	h := testHub()
	runHub(t, h)

	slow := &Client{hub: h, send: make(chan []byte)}
	h.register <- slow
	time.Sleep(20 * time.Millisecond)

	h.Broadcast(event(20, "gas", 0.1, false))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, h.ClientCount())
	assert.Equal(t, int64(1), h.Stats().DroppedMessages)
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHub_PublishAnalysis(t *testing.T) {
	h := testHub()
	runHub(t, h)

	client := &Client{hub: h, send: make(chan []byte, 8)}
	h.register <- client
	time.Sleep(20 * time.Millisecond)

	h.PublishAnalysis(&risk.Analysis{Recommendation: risk.Recommend(risk.Prediction{Prediction: 1})})

	select {
	case msg := <-client.send:
		assert.Contains(t, string(msg), `"source":"api"`)
		assert.Contains(t, string(msg), `"alert_level":"high"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published analysis")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}

	w := httptest.NewRecorder()
	h.HandleWebSocket(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHub_MaxClients(t *testing.T) {
	h := testHub(WithMaxClients(0))
	runHub(t, h)

	w := httptest.NewRecorder()
	h.HandleWebSocket(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ---------------------------------------------------------------------------
// WebSocket round trip
// ---------------------------------------------------------------------------

func dial(t *testing.T, srv *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_WebSocketSubscriptionRoundTrip(t *testing.T) {
	h := testHub()
	runHub(t, h)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Subscription{FraudOnly: true}))
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(event(10, "gas", 0.1, false))
	h.Broadcast(event(9000, "online", 1, true))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 9000.0, got.Transaction.Amount)
	assert.Equal(t, risk.AlertHigh, got.AlertLevel)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_OriginCheck(t *testing.T) {
	strict := testHub()
	runHub(t, strict)
	srv := httptest.NewServer(http.HandlerFunc(strict.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	open := testHub(WithAllowAllOrigins())
	runHub(t, open)
	srv2 := httptest.NewServer(http.HandlerFunc(open.HandleWebSocket))
	defer srv2.Close()

	dial(t, srv2, "https://dashboard.example")
	require.Eventually(t, func() bool { return open.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}
