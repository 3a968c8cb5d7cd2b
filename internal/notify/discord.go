package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// discordFieldLimit is Discord's maximum length for an embed field value.
const discordFieldLimit = 1024

// DiscordNotifier sends run summaries to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a DiscordNotifier with the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// BuildDiscordPayload creates the Discord embed message for a run summary.
func BuildDiscordPayload(s Summary) discordPayload {
	clusters := FormatClusters(s.Clusters)
	if r := []rune(clusters); len(r) > discordFieldLimit {
		clusters = string(r[:discordFieldLimit-3]) + "..."
	}

	embed := discordEmbed{
		Title:       s.Title(),
		Description: FormatCoverage(s),
		Color:       3447003, // Blue
		Fields: []discordField{
			{Name: "Largest clusters", Value: clusters},
		},
		Footer: &discordFooter{Text: footer(s)},
	}

	return discordPayload{Embeds: []discordEmbed{embed}}
}

// Notify sends a Discord message for the run.
// Callers are expected to wrap this with retry logic if needed.
func (n *DiscordNotifier) Notify(ctx context.Context, s Summary) error {
	body, err := json.Marshal(BuildDiscordPayload(s))
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}
	return postJSON(ctx, n.client, "discord", n.webhookURL, body)
}
