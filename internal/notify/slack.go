package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SlackNotifier sends run summaries to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a SlackNotifier with the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText represents a text object in Slack Block Kit.
type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackPayload is the top-level Slack message payload.
type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

// BuildSlackPayload creates the Slack Block Kit message for a run summary.
func BuildSlackPayload(s Summary) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: s.Title()},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(":bar_chart: %s", FormatCoverage(s))},
		},
	}

	if len(s.Clusters) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Largest clusters:*\n%s", FormatClusters(s.Clusters)),
			},
		})
	}

	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{{Type: "mrkdwn", Text: footer(s)}},
	})

	return slackPayload{Blocks: blocks}
}

// Notify sends a Slack message for the run. Retries once on failure.
func (n *SlackNotifier) Notify(ctx context.Context, s Summary) error {
	body, err := json.Marshal(BuildSlackPayload(s))
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	if err := postJSON(ctx, n.client, "slack", n.webhookURL, body); err != nil {
		slog.Warn("slack notify failed, retrying", "error", err)
		if err := postJSON(ctx, n.client, "slack", n.webhookURL, body); err != nil {
			return fmt.Errorf("slack notify failed after retry: %w", err)
		}
	}
	return nil
}
