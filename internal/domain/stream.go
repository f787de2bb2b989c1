package domain

import (
	"encoding/json"
	"time"
)

// Pub/Sub channels carrying live scanner events.
const (
	ChannelCycles        = "arbwatch:cycles"
	ChannelOpportunities = "arbwatch:opportunities"
)

// Stream message types.
const (
	MessageCycle       = "cycle"
	MessageOpportunity = "opportunity"
)

// StreamMessage is the JSON envelope published on the live channels and sent
// to WebSocket clients.
type StreamMessage struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeStreamMessage wraps payload in a StreamMessage.
func EncodeStreamMessage(channel, typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(StreamMessage{Type: typ, Channel: channel, Payload: raw})
}

// CycleSummary is the compact form of a CycleReport used on live channels
// and in the audit log.
type CycleSummary struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	DurationMS    int64           `json:"duration_ms"`
	Symbols       int             `json:"symbols"`
	Quotes        int             `json:"quotes"`
	Opportunities int             `json:"opportunities"`
	Notified      int             `json:"notified"`
	NotifyFailed  int             `json:"notify_failed"`
	Exchanges     []ExchangeStats `json:"exchanges"`
}

// Summary condenses the report.
func (r CycleReport) Summary() CycleSummary {
	quotes := 0
	for _, sq := range r.Prices.Symbols {
		quotes += len(sq.Quotes)
	}
	return CycleSummary{
		ID:            r.ID,
		StartedAt:     r.StartedAt,
		DurationMS:    r.Duration.Milliseconds(),
		Symbols:       len(r.Prices.Symbols),
		Quotes:        quotes,
		Opportunities: len(r.Opportunities),
		Notified:      r.Notified,
		NotifyFailed:  r.NotifyFailed,
		Exchanges:     r.Exchanges,
	}
}
