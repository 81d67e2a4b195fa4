// Package notify is the outbound notification boundary. The only channel
// is a Telegram bot; sends are fire-and-forget from the pipeline's point of
// view (callers log failures, nothing retries).
package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/warehouse"
)

const telegramBaseURL = "https://api.telegram.org"

// Telegram sends daily summaries through the Bot API.
type Telegram struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
	tableNames map[string]string
}

// TelegramOption configures the sender.
type TelegramOption func(*Telegram)

// WithBaseURL overrides the Bot API base URL.
func WithBaseURL(baseURL string) TelegramOption {
	return func(t *Telegram) { t.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) { t.httpClient = c }
}

// NewTelegram creates a sender. tableNames supplies display-name overrides
// for the per-category emoji mapping.
func NewTelegram(botToken, chatID string, tableNames map[string]string, options ...TelegramOption) *Telegram {
	t := &Telegram{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    telegramBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tableNames: tableNames,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// SendSummary formats and posts the daily summary.
func (t *Telegram) SendSummary(ctx context.Context, summary *warehouse.Summary, dashboardURL, currency string) error {
	return t.sendMessage(ctx, formatSummary(summary, dashboardURL, currency, t.tableNames))
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: telegram responded %d: %s", resp.StatusCode, body)
	}
	return nil
}

// formatSummary renders the HTML summary message: overall total with its
// day-over-day movement, then one block per source, then the dashboard link.
func formatSummary(s *warehouse.Summary, dashboardURL, currency string, tableNames map[string]string) string {
	sym := currencySymbol(currency)

	var b strings.Builder
	b.WriteString("<b>📊 Daily Summary</b>\n\n")

	totalEmoji := "💰"
	if s.TotalChange < 0 {
		totalEmoji = "📉"
	}
	totalName := displayName(tableNames, "total", "total")
	fmt.Fprintf(&b, "%s <b>%s:</b> %s%s\n", totalEmoji, totalName, sym, formatAmount(s.TotalToday))
	fmt.Fprintf(&b, "%s %s%s (%+.2f%%)\n\n",
		changeEmoji(s.TotalChange), sym, formatAmount(math.Abs(s.TotalChange)), s.TotalChangePct)

	categoryEmojis := map[string]string{
		displayName(tableNames, "accounts", "bank-accounts"): "🏦",
		displayName(tableNames, "stocks", "stocks"):          "📈",
		displayName(tableNames, "crypto", "crypto"):          "🪙",
	}

	for _, src := range s.Sources {
		emoji, ok := categoryEmojis[src.Name]
		if !ok {
			emoji = "💼"
		}
		fmt.Fprintf(&b, "%s <b>%s:</b> %s%s\n", emoji, src.Name, sym, formatAmount(src.Today))
		fmt.Fprintf(&b, "%s %s%s (%+.2f%%)\n\n",
			changeEmoji(src.Change), sym, formatAmount(math.Abs(src.Change)), src.ChangePct)
	}

	if dashboardURL != "" {
		fmt.Fprintf(&b, "🔗 <a href=\"%s\">Open Dashboard</a>", dashboardURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayName(tableNames map[string]string, key, fallback string) string {
	if v, ok := tableNames[key]; ok && v != "" {
		return v
	}
	return fallback
}

func changeEmoji(change float64) string {
	if change < 0 {
		return "🔻"
	}
	return "▲"
}

func currencySymbol(currency string) string {
	switch currency {
	case "EUR":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	default:
		return currency + " "
	}
}

// formatAmount renders a whole-number amount with "." thousands separators,
// e.g. 1234567.8 -> "1.234.568".
func formatAmount(v float64) string {
	n := int64(math.Round(v))
	s := strconv.FormatInt(n, 10)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ".")
	if neg {
		out = "-" + out
	}
	return out
}
