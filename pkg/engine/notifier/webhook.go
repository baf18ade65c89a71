package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookTrigger posts a Slack-compatible message to an incoming webhook.
type WebhookTrigger struct {
	URL     string
	Channel string // Optional: Override default channel
	Client  *http.Client
}

// NewWebhookTrigger returns nil for an empty URL.
func NewWebhookTrigger(url, channel string) *WebhookTrigger {
	if url == "" {
		return nil
	}
	return &WebhookTrigger{
		URL:     url,
		Channel: channel,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookTrigger) Fire(ctx context.Context, s Summary) error {
	jsonPayload, err := json.Marshal(w.constructPayload(s))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("received non-2xx status from webhook: %d", resp.StatusCode)
	}
	return nil
}

// constructPayload builds the message blocks.
func (w *WebhookTrigger) constructPayload(s Summary) map[string]interface{} {
	statusIcon := "🟢"
	if len(s.Overloaded) > len(s.Underutilized) {
		statusIcon = "🔴"
	} else if len(s.Overloaded) > 0 {
		statusIcon = "🟡"
	}

	title := "Initial congestion snapshot"
	if s.Stage == StageFinal {
		title = "Rebalancing complete"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s %s", statusIcon, title),
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run:* %s | *Cycle:* %d | *Threshold:* %.2f", s.RunID, s.Cycle, s.Threshold),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Total Load:*\n%d", s.TotalLoad)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Overloaded:*\n%d", len(s.Overloaded))},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Underutilized:*\n%d", len(s.Underutilized))},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Displacement:*\n%.4f", s.Displacement)},
			},
		},
	}

	if len(s.Overloaded) > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": "⚠️ *Overloaded:* " + strings.Join(s.Overloaded, ", "),
			},
		})
	}

	payload := map[string]interface{}{
		"text":    fmt.Sprintf("%s: %d overloaded", title, len(s.Overloaded)),
		"blocks":  blocks,
		"summary": s,
	}
	if w.Channel != "" {
		payload["channel"] = w.Channel
	}
	return payload
}
