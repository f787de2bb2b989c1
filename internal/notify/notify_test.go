package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:            "c1/BTC",
		Symbol:        "BTC",
		SpreadPct:     1.7999999999,
		VolatilityPct: 0,
		BuyExchange:   "binance",
		SellExchange:  "kraken",
		BuyPrice:      50000,
		SellPrice:     50900,
		Profit:        900,
	}
}

type recordingSender struct {
	name  string
	err   error
	texts []string
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	r.texts = append(r.texts, title+"\n"+message)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestFormatAlert(t *testing.T) {
	title, msg := FormatAlert(sampleOpportunity())
	if title != AlertTitle {
		t.Fatalf("title = %q", title)
	}
	for _, want := range []string{
		"Asset: BTC",
		"Spread: 1.80%",
		"Volatility: 0.00%",
		"Buy on: BINANCE",
		"Price: 50000.00 $",
		"Sell on: KRAKEN",
		"Price: 50900.00 $",
		"Potential profit: 900.00 $",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestDispatchContinuesAfterSenderFailure(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, 0, testLogger())

	err := n.Dispatch(context.Background(), sampleOpportunity())
	if err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("Dispatch error = %v, want failure naming bad sender", err)
	}
	if len(good.texts) != 1 {
		t.Fatalf("good sender got %d messages, want 1", len(good.texts))
	}
	if got := n.Senders(); len(got) != 2 || got[0] != "bad" {
		t.Fatalf("Senders = %v", got)
	}
}

func TestDispatchCooldown(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, time.Minute, testLogger())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n.cooldown.now = func() time.Time { return now }

	opp := sampleOpportunity()
	for i := 0; i < 3; i++ {
		if err := n.Dispatch(context.Background(), opp); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	if len(s.texts) != 1 {
		t.Fatalf("sent %d alerts within cooldown, want 1", len(s.texts))
	}

	now = now.Add(2 * time.Minute)
	if err := n.Dispatch(context.Background(), opp); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(s.texts) != 2 {
		t.Fatalf("sent %d alerts after cooldown, want 2", len(s.texts))
	}
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "42")
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" || !strings.HasPrefix(got["text"], "<b>Title</b>") {
		t.Fatalf("payload = %v", got)
	}
}

func TestTelegramSenderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramSender(srv.URL, "TOKEN", "42").Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("Send error = %v", err)
	}
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["content"] != "**Title**\nbody" {
		t.Fatalf("content = %q", got["content"])
	}
}

func TestWebhookSenderSignsOpportunity(t *testing.T) {
	signer := crypto.NewWebhookSigner("secret")
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !signer.Verify(body, r.Header.Get(crypto.HeaderTimestamp), r.Header.Get(crypto.HeaderSignature)) {
			t.Error("bad signature")
		}
		json.Unmarshal(body, &payload)
	}))
	defer srv.Close()

	n := NewNotifier([]Sender{NewWebhookSender(srv.URL, "secret")}, 0, testLogger())
	if err := n.Dispatch(context.Background(), sampleOpportunity()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if payload.Event != "opportunity" || payload.Opportunity == nil || payload.Opportunity.Symbol != "BTC" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestWebhookSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if err := NewWebhookSender(srv.URL, "").Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected error for 502")
	}
}
