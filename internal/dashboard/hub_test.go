package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"simtrade/internal/domain"
	"simtrade/internal/event"
)

func TestHubRelaysEvents(t *testing.T) {
	bus := event.NewBus()
	hub := NewHub(bus, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	defer conn.Close()

	// The bus subscription in Run may not be registered yet; publish until
	// the relayed event arrives.
	received := make(chan []byte, 1)
	go func() {
		_, payload, err := conn.ReadMessage()
		if err == nil {
			received <- payload
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		bus.Publish(event.Event{Type: event.TypeFill, Fill: &domain.Fill{ID: "f-1", Symbol: "AAPL"}})
		select {
		case payload := <-received:
			var evt event.Event
			if err := json.Unmarshal(payload, &evt); err != nil {
				t.Fatalf("decoding relayed event: %v", err)
			}
			if evt.Type != event.TypeFill || evt.Fill == nil || evt.Fill.ID != "f-1" {
				t.Errorf("relayed event = %+v", evt)
			}
			return
		case <-deadline:
			t.Fatal("no event relayed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubDisconnectsClosedClients(t *testing.T) {
	bus := event.NewBus()
	hub := NewHub(bus, slog.New(slog.DiscardHandler))

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	conn.Close()

	// The read pump notices the closed connection; no broadcast is needed to
	// trigger the deregistration.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := len(hub.clients)
		hub.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("closed client never dropped")
}
