// Package slack pushes critical triage decisions to a Slack channel via an
// incoming webhook, so the charge nurse hears about level 1 and 2 arrivals
// without watching the board.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

const (
	httpTimeout = 10 * time.Second
	maxRisks    = 4
)

// Notifier sends triage decisions to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a decision to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, d *triage.Decision) error {
	if n.webhookURL == "" {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(buildMessage(d)); err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(d *triage.Decision) map[string]any {
	blocks := []map[string]any{
		headerBlock(d),
		{"type": "divider"},
		fieldsBlock(d),
	}
	if b := reasonBlock(d); b != nil {
		blocks = append(blocks, map[string]any{"type": "divider"}, b)
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(d))
	return map[string]any{"blocks": blocks}
}

func headerBlock(d *triage.Decision) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s Level %d (%s) arrival", levelEmoji(d.Level), d.Level, d.LevelName),
		},
	}
}

func fieldsBlock(d *triage.Decision) map[string]any {
	v := d.Record.Vitals
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Zone:* %s (%s)", d.Zone, d.ZoneArea)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Arrival:* %s", d.Record.Arrival)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Age:* %d", d.Record.Age)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Vitals:* BP %d/%d, SpO₂ %d%%, RR %d, GCS %d",
			v.SBP, v.DBP, v.SpO2, v.RespRate, v.GCSTotal())},
	}
	return map[string]any{"type": "section", "fields": fields}
}

func reasonBlock(d *triage.Decision) map[string]any {
	var lines []string
	if len(d.RedFlags) > 0 {
		lines = append(lines, fmt.Sprintf("*Red flags:* %s", strings.Join(d.RedFlags, ", ")))
	}
	if len(d.Rationale) > 0 {
		lines = append(lines, fmt.Sprintf("*Rationale:* %s", strings.Join(d.Rationale, "; ")))
	}
	if risks := topRisks(d.Probabilities); risks != "" {
		lines = append(lines, fmt.Sprintf("*Top risks:* %s", risks))
	}
	if len(lines) == 0 {
		return nil
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{"type": "mrkdwn", "text": strings.Join(lines, "\n")},
	}
}

func contextBlock(d *triage.Decision) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("edtriage • decision %s • session %s • %s",
					d.ID, d.SessionID, d.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

// topRisks renders the highest-probability outcomes, descending.
func topRisks(probs triage.Probabilities) string {
	if len(probs) == 0 {
		return ""
	}
	names := make([]string, 0, len(probs))
	for name := range probs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if probs[names[i]] != probs[names[j]] {
			return probs[names[i]] > probs[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxRisks {
		names = names[:maxRisks]
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", name, probs[name]*100))
	}
	return strings.Join(parts, ", ")
}

func levelEmoji(level int) string {
	switch level {
	case 1:
		return "\U0001f534" // red circle
	case 2:
		return "\U0001f7e0" // orange circle
	default:
		return "\U0001f7e1" // yellow circle
	}
}
