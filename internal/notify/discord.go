// Package notify posts run results to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"fxrisk/config"
	"fxrisk/logger"
)

// discordContentLimit is the webhook message size cap.
const discordContentLimit = 2000

var ErrWebhookStatus = errors.New("notify: webhook rejected message")

type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// New returns a Discord notifier, or a no-op one when Discord is disabled.
func New(cfg config.DiscordConfig) Notifier {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		return Nop{}
	}
	return NewDiscord(cfg)
}

type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

type Discord struct {
	webhookURL string
	httpClient *http.Client
	log        *logger.Entry
}

func NewDiscord(cfg config.DiscordConfig) *Discord {
	return &Discord{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.GetLogger().WithComponent("discord"),
	}
}

type discordMessage struct {
	Content string `json:"content"`
}

// Notify posts content as a plain message, truncated to the webhook limit.
func (d *Discord) Notify(ctx context.Context, content string) error {
	if r := []rune(content); len(r) > discordContentLimit {
		content = string(r[:discordContentLimit-1]) + "…"
	}
	payload, err := json.Marshal(discordMessage{Content: content})
	if err != nil {
		return fmt.Errorf("encode discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrWebhookStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	d.log.WithField("bytes", len(payload)).Debug("discord message sent")
	return nil
}

// NAVMessage renders a net liquidating value like "NAV $1,234.56".
func NAVMessage(nav float64) string {
	return "NAV " + FormatUSD(nav)
}

// FormatUSD formats v with a dollar sign, thousands separators and two
// decimals.
func FormatUSD(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + frac
}

// ExposureMessage wraps a rendered exposure table in a code block.
func ExposureMessage(title, table string) string {
	return title + "\n```\n" + strings.TrimRight(table, "\n") + "\n```"
}
