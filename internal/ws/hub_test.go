package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/millwatch/millwatch/internal/monitor"
	"github.com/millwatch/millwatch/internal/simulator"
	"github.com/millwatch/millwatch/internal/store"
)

func seededStore() *store.Store {
	st := store.New(time.Minute)
	for _, id := range []string{"M001", "M002"} {
		st.Put(monitor.PredictionResult{
			MachineID:          id,
			FailureProbability: 0.1,
			NormalProbability:  0.9,
			HealthStatus:       "HEALTHY",
			Sensor:             simulator.Reading{MachineID: id, Type: "L"},
			Timestamp:          time.Now(),
		})
	}
	return st
}

func startHub(t *testing.T, st *store.Store, interval time.Duration) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(st, interval)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message %q: %v", data, err)
	}
	return msg
}

func TestHub_SendsVerdictsOnConnect(t *testing.T) {
	_, srv := startHub(t, seededStore(), time.Hour) // ticker effectively off
	conn := dial(t, srv)

	msg := readMessage(t, conn)
	if msg.Event != "fleet_update" {
		t.Errorf("event: got %q, want fleet_update", msg.Event)
	}
	if len(msg.Data.Predictions) != 2 {
		t.Fatalf("predictions: got %d, want 2", len(msg.Data.Predictions))
	}
	if msg.Data.Predictions[0].MachineID != "M001" {
		t.Errorf("first prediction: got %q, want M001", msg.Data.Predictions[0].MachineID)
	}
	if msg.Data.GeneratedAt == "" {
		t.Error("generated_at is empty")
	}
}

func TestHub_BroadcastsOnTicker(t *testing.T) {
	st := seededStore()
	_, srv := startHub(t, st, 20*time.Millisecond)
	conn := dial(t, srv)

	// Initial message plus at least one ticker broadcast.
	readMessage(t, conn)
	msg := readMessage(t, conn)
	if msg.Event != "fleet_update" {
		t.Errorf("event: got %q", msg.Event)
	}

	// New verdicts appear in later broadcasts.
	st.Put(monitor.PredictionResult{
		MachineID:          "M003",
		FailureProbability: 0.8,
		NormalProbability:  0.2,
		HealthStatus:       "MAINTENANCE REQUIRED",
		Alert:              true,
		Sensor:             simulator.Reading{MachineID: "M003", Type: "H"},
		Timestamp:          time.Now(),
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("M003 never appeared in a broadcast")
		}
		msg = readMessage(t, conn)
		if len(msg.Data.Predictions) == 3 {
			break
		}
	}
	last := msg.Data.Predictions[2]
	if last.MachineID != "M003" || !last.Alert {
		t.Errorf("got machine %q alert=%v, want M003/true", last.MachineID, last.Alert)
	}
}

func TestHub_CountTracksClients(t *testing.T) {
	h, srv := startHub(t, seededStore(), time.Hour)

	if h.Count() != 0 {
		t.Fatalf("initial count: got %d", h.Count())
	}

	conn1 := dial(t, srv)
	conn2 := dial(t, srv)
	waitForCount(t, h, 2)

	conn1.Close()
	waitForCount(t, h, 1)

	conn2.Close()
	waitForCount(t, h, 0)
}

func TestHub_RunClosesClientsOnCancel(t *testing.T) {
	h := New(seededStore(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dial(t, srv)
	waitForCount(t, h, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	// The client is dropped and its connection closed.
	if h.Count() != 0 {
		t.Errorf("count after shutdown: got %d", h.Count())
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("count: got %d, want %d", h.Count(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
