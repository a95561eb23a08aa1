package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries the context of a high-margin find.
type Notification struct {
	Query           string
	Source          string
	AskingPrice     decimal.Decimal
	AdjustedLow     decimal.Decimal
	AdjustedHigh    decimal.Decimal
	EstProfitLow    decimal.Decimal
	EstProfitHigh   decimal.Decimal
	ThresholdProfit decimal.Decimal
	SearchURL       string
	Channels        []string
	FoundAt         time.Time
}

// Notifier delivers high-margin alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify posts the rendered message via sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("query", note.Query).
		Str("est_profit_low", note.EstProfitLow.StringFixed(2)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("profit alert sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[FlipCheck Alert]\n")
	builder.WriteString(fmt.Sprintf("Query: %s\n", note.Query))
	builder.WriteString(fmt.Sprintf("Asking: $%s\n", note.AskingPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Resale range: $%s - $%s (%s)\n",
		note.AdjustedLow.StringFixed(2), note.AdjustedHigh.StringFixed(2), note.Source))
	builder.WriteString(fmt.Sprintf("Est. profit: $%s - $%s (threshold $%s)\n",
		note.EstProfitLow.StringFixed(2), note.EstProfitHigh.StringFixed(2), note.ThresholdProfit.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Found: %s UTC\n", note.FoundAt.UTC().Format(time.RFC3339)))
	if note.SearchURL != "" {
		builder.WriteString(note.SearchURL + "\n")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
