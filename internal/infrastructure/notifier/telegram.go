package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vitos/crypto_ambush_bot/internal/domain"
)

// TelegramNotifier delivers alerts through the Telegram bot API. When no
// token or chat id is configured Send becomes a no-op, which keeps local
// runs quiet without extra wiring.
type TelegramNotifier struct {
	apiURL  string
	token   string
	chatID  string
	client  *http.Client
	enabled bool
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		apiURL:  "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
		enabled: token != "" && chatID != "",
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert *domain.Alert) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       formatAlert(alert),
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

func formatAlert(alert *domain.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s* %s %s\n", titleFor(alert.Kind), alert.Symbol, directionTag(alert.Direction))
	if alert.Price > 0 {
		fmt.Fprintf(&b, "Price: %.6g\n", alert.Price)
	}
	if alert.Score > 0 {
		fmt.Fprintf(&b, "Score: %d\n", alert.Score)
	}
	if alert.Confidence > 0 {
		fmt.Fprintf(&b, "Confidence: %.0f%%\n", alert.Confidence)
	}
	for _, reason := range alert.Reasons {
		fmt.Fprintf(&b, "• %s\n", reason)
	}
	for _, warning := range alert.Warnings {
		fmt.Fprintf(&b, "⚠ %s\n", warning)
	}
	if alert.CountToday > 0 {
		fmt.Fprintf(&b, "Alert %d of today for %s/%s", alert.CountToday, alert.Symbol, alert.Cadence)
	}

	return strings.TrimRight(b.String(), "\n")
}

func titleFor(kind string) string {
	switch kind {
	case "watchlist_admission":
		return "🔭 Watchlist"
	case "pre_warn":
		return "⏳ Pre-warn"
	case "position_stop_loss":
		return "🛑 Stop Loss"
	case "position_take_profit_1", "position_take_profit_2", "position_take_profit_3":
		return "✅ Take Profit"
	case "position_rsi_extreme":
		return "📛 RSI Extreme"
	case "position_trend_reversal", "position_pattern_reversal":
		return "🔄 Reversal"
	default:
		if strings.HasPrefix(kind, "trigger_") {
			return "🚀 " + strings.ReplaceAll(strings.TrimPrefix(kind, "trigger_"), "_", " ")
		}
		return kind
	}
}

func directionTag(d domain.Direction) string {
	if d == domain.DirectionShort {
		return "🔴 SHORT"
	}
	return "🟢 LONG"
}
