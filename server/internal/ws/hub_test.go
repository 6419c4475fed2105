package ws_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/store"
	wsHub "github.com/linewatch/linewatch/server/internal/ws"
)

// --- helpers ----------------------------------------------------------------

var base = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func line(id int) types.ProductionLine {
	return types.ProductionLine{
		ID:         id,
		Name:       fmt.Sprintf("Line %d", id),
		Status:     types.StatusActive,
		Voltage:    380,
		Efficiency: 90,
		LastUpdate: base,
	}
}

func newStore(ids ...int) *store.Store {
	st := store.New(time.Minute)
	for _, id := range ids {
		st.Add(line(id), []types.Metric{{Timestamp: base, Voltage: 380, ActivePower: 20}})
	}
	return st
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is fed from the returned updates channel.
// Returns the ws:// URL, the hub, the updates channel and a cancel function.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub, updates chan []types.LineData, cancel func()) {
	t.Helper()

	hub = wsHub.New(st)
	updates = make(chan []types.LineData, 4)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx, updates)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, updates, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one snapshot message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func linesOf(t *testing.T, m map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	lines, ok := data["lines"].([]interface{})
	if !ok {
		t.Fatal("lines: missing or wrong type")
	}
	return lines
}

// waitCount polls hub.Count until it equals want or a deadline passes.
func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Count: got %d, want %d", hub.Count(), want)
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	wsURL, _, _, _ := startHub(t, newStore(1, 3, 4))

	m := readMessage(t, dial(t, wsURL))

	if m["event"] != "snapshot" {
		t.Errorf("event: got %v, want snapshot", m["event"])
	}
	data := m["data"].(map[string]interface{})
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
	if n := len(linesOf(t, m)); n != 3 {
		t.Errorf("lines: got %d, want 3", n)
	}
}

func TestHub_EmptyStore_EmptyLines(t *testing.T) {
	wsURL, _, _, _ := startHub(t, newStore())
	m := readMessage(t, dial(t, wsURL))
	if n := len(linesOf(t, m)); n != 0 {
		t.Errorf("lines: got %d, want 0", n)
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _, _ := startHub(t, newStore())

	for i := 0; i < 3; i++ {
		readMessage(t, dial(t, wsURL)) // consume initial message
	}
	waitCount(t, hub, 3)
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _, _ := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	conn.Close()
	waitCount(t, hub, 0)
}

func TestHub_BroadcastsEachUpdate(t *testing.T) {
	wsURL, hub, updates, _ := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot (empty store)
	waitCount(t, hub, 1)

	updates <- []types.LineData{{Line: line(7)}}

	m := readMessage(t, conn)
	lines := linesOf(t, m)
	if len(lines) != 1 {
		t.Fatalf("broadcast: got %d lines, want 1", len(lines))
	}
	entry := lines[0].(map[string]interface{})
	l := entry["line"].(map[string]interface{})
	if l["id"].(float64) != 7 || l["name"] != "Line 7" {
		t.Errorf("line: got id %v name %v, want 7 / Line 7", l["id"], l["name"])
	}
	if _, ok := entry["metrics"].([]interface{}); !ok {
		t.Error("metrics should encode as an array")
	}
}

func TestHub_AllClientsReceiveBroadcast(t *testing.T) {
	wsURL, hub, updates, _ := startHub(t, newStore(1))

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i])
	}
	waitCount(t, hub, 3)

	updates <- []types.LineData{{Line: line(1)}, {Line: line(3)}}

	for i, conn := range conns {
		if n := len(linesOf(t, readMessage(t, conn))); n != 2 {
			t.Errorf("client %d: got %d lines, want 2", i, n)
		}
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, _, cancel := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	cancel() // signal shutdown
	waitCount(t, hub, 0)
}

func TestHub_ClosedUpdatesStopsRun(t *testing.T) {
	hub := wsHub.New(newStore())
	updates := make(chan []types.LineData)
	done := make(chan struct{})
	go func() {
		hub.Run(context.Background(), updates)
		close(done)
	}()

	close(updates)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after updates closed")
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers returns 400.
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
