package ws

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

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitClients blocks until the hub has registered n clients.
func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) domain.StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("frame type = %d, want text", kind)
	}
	var msg domain.StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func startHub(t *testing.T, bus domain.SignalBus) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(bus, testLogger(), Config{Mode: "scan"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, srv
}

func TestObserveCycleStreamsSummaryAndOpportunities(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv)
	waitClients(t, hub, 1)

	if hello := readMessage(t, conn); hello.Type != "hello" {
		t.Fatalf("first message = %q, want hello", hello.Type)
	}

	hub.ObserveCycle(context.Background(), domain.CycleReport{
		ID: "c9",
		Prices: domain.PriceMap{Symbols: []domain.SymbolQuotes{
			{Symbol: "BTC", Quotes: []domain.Quote{{Exchange: "a"}, {Exchange: "b"}}},
		}},
		Opportunities: []domain.Opportunity{{ID: "c9/BTC", Symbol: "BTC"}},
	})

	cycle := readMessage(t, conn)
	if cycle.Type != domain.MessageCycle || cycle.Channel != domain.ChannelCycles {
		t.Fatalf("cycle message = %+v", cycle)
	}
	var sum domain.CycleSummary
	if err := json.Unmarshal(cycle.Payload, &sum); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ID != "c9" || sum.Quotes != 2 || sum.Opportunities != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	opp := readMessage(t, conn)
	if opp.Type != domain.MessageOpportunity {
		t.Fatalf("second message type = %q", opp.Type)
	}
	var o domain.Opportunity
	if err := json.Unmarshal(opp.Payload, &o); err != nil || o.ID != "c9/BTC" {
		t.Fatalf("opportunity = %+v (%v)", o, err)
	}
}

func TestUnsubscribe(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv)
	waitClients(t, hub, 1)
	readMessage(t, conn) // hello

	if err := conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelCycles}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The subscription change is applied asynchronously.
	time.Sleep(100 * time.Millisecond)

	hub.ObserveCycle(context.Background(), domain.CycleReport{
		ID:            "c1",
		Opportunities: []domain.Opportunity{{ID: "c1/ETH"}},
	})
	if msg := readMessage(t, conn); msg.Type != domain.MessageOpportunity {
		t.Fatalf("got %q after unsubscribing cycles", msg.Type)
	}
}

type chanBus struct {
	chans map[string]chan []byte
}

func (b *chanBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.chans[channel] <- payload
	return nil
}

func (b *chanBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.chans[channel], nil
}

func TestRelayFromBus(t *testing.T) {
	bus := &chanBus{chans: map[string]chan []byte{
		domain.ChannelCycles:        make(chan []byte, 1),
		domain.ChannelOpportunities: make(chan []byte, 1),
	}}
	hub, srv := startHub(t, bus)
	conn := dial(t, srv)
	waitClients(t, hub, 1)
	readMessage(t, conn) // hello

	payload, err := domain.EncodeStreamMessage(domain.ChannelOpportunities, domain.MessageOpportunity, domain.Opportunity{ID: "remote"})
	if err != nil {
		t.Fatal(err)
	}
	bus.Publish(context.Background(), domain.ChannelOpportunities, payload)

	msg := readMessage(t, conn)
	var o domain.Opportunity
	if err := json.Unmarshal(msg.Payload, &o); err != nil || o.ID != "remote" {
		t.Fatalf("relayed = %+v (%v)", o, err)
	}
}

func TestIsSubscribedWildcard(t *testing.T) {
	c := &client{subs: map[string]bool{"arbwatch:*": true}}
	if !c.isSubscribed(domain.ChannelOpportunities) {
		t.Fatal("wildcard did not match")
	}
	c = &client{subs: map[string]bool{domain.ChannelCycles: true}}
	if c.isSubscribed(domain.ChannelOpportunities) {
		t.Fatal("unexpected match")
	}
}
