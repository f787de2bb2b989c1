// Package notify delivers opportunity alerts to one or more channels
// (Telegram, Discord, signed webhooks). A failing channel never prevents
// delivery to the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// OpportunitySender is implemented by channels that want the structured
// opportunity in addition to the rendered text.
type OpportunitySender interface {
	SendOpportunity(ctx context.Context, opp domain.Opportunity, title, message string) error
}

// Notifier renders opportunities and fans them out to every sender.
type Notifier struct {
	senders  []Sender
	cooldown *Cooldown
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. A positive cooldown suppresses repeat
// alerts for the same symbol and direction within that window.
func NewNotifier(senders []Sender, cooldown time.Duration, logger *slog.Logger) *Notifier {
	n := &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
	if cooldown > 0 {
		n.cooldown = NewCooldown(cooldown)
	}
	return n
}

// Senders returns the configured channel names.
func (n *Notifier) Senders() []string {
	names := make([]string, len(n.senders))
	for i, s := range n.senders {
		names[i] = s.Name()
	}
	return names
}

// Dispatch sends one alert for opp. Errors from individual senders are
// collected and returned as a combined error.
func (n *Notifier) Dispatch(ctx context.Context, opp domain.Opportunity) error {
	if n.cooldown != nil && n.cooldown.Suppress(cooldownKey(opp)) {
		n.logger.DebugContext(ctx, "alert suppressed by cooldown",
			slog.String("symbol", string(opp.Symbol)),
		)
		return nil
	}

	title, message := FormatAlert(opp)
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		var err error
		if rich, ok := s.(OpportunitySender); ok {
			err = rich.SendOpportunity(ctx, opp, title, message)
		} else {
			err = s.Send(ctx, title, message)
		}
		if err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("symbol", string(opp.Symbol)),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func cooldownKey(opp domain.Opportunity) string {
	return string(opp.Symbol) + "|" + string(opp.BuyExchange) + "|" + string(opp.SellExchange)
}
