package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// AlertTitle heads every opportunity alert.
const AlertTitle = "🚀 ARBITRAGE OPPORTUNITY 🚀"

// FormatAlert renders opp as a title and a plain-text body. Figures are
// rounded to two decimals.
func FormatAlert(opp domain.Opportunity) (title, message string) {
	var b strings.Builder
	fmt.Fprintf(&b, "▫️ Asset: %s\n", html.EscapeString(string(opp.Symbol)))
	fmt.Fprintf(&b, "📈 Spread: %s%%\n", fixed(opp.SpreadPct))
	fmt.Fprintf(&b, "📊 Volatility: %s%%\n\n", fixed(opp.VolatilityPct))
	fmt.Fprintf(&b, "🟢 Buy on: %s\n", venue(opp.BuyExchange))
	fmt.Fprintf(&b, "💰 Price: %s $\n\n", fixed(opp.BuyPrice))
	fmt.Fprintf(&b, "🔴 Sell on: %s\n", venue(opp.SellExchange))
	fmt.Fprintf(&b, "💰 Price: %s $\n\n", fixed(opp.SellPrice))
	fmt.Fprintf(&b, "💵 Potential profit: %s $", fixed(opp.Profit))
	return AlertTitle, b.String()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func venue(id domain.ExchangeID) string {
	return html.EscapeString(strings.ToUpper(string(id)))
}
