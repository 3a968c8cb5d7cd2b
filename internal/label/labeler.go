// Package label names clusters with a short LLM-written description.
package label

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jacklau/neardup/internal/provider"
)

// fallbackChars is the length of a label built from the centroid text.
const fallbackChars = 60

// Labeler asks an LLM completer for cluster labels.
type Labeler struct {
	completer provider.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// NewLabeler creates a Labeler. If timeout is zero, defaults to 30 seconds.
func NewLabeler(completer provider.Completer, timeout time.Duration, logger *slog.Logger) *Labeler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Labeler{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
	}
}

type llmResponse struct {
	Label string `json:"label"`
}

// codeFenceRe matches markdown code fences around JSON.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\\s*```")

func parseResponse(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)

	if matches := codeFenceRe.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = strings.TrimSpace(matches[1])
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return "", fmt.Errorf("%w: %s", provider.ErrInvalidResponse, err)
	}

	label := strings.Join(strings.Fields(resp.Label), " ")
	if label == "" {
		return "", fmt.Errorf("%w: empty label", provider.ErrInvalidResponse)
	}
	return label, nil
}

const retryPromptSuffix = `

IMPORTANT: You MUST respond with ONLY valid JSON. No markdown, no code fences, no extra text.
Example: {"label": "login page crashes on submit"}`

// Label returns a short description of a cluster. samples are member texts
// with the centroid first. When the completer fails or keeps returning
// malformed output, the label is the centroid text, truncated.
func (l *Labeler) Label(ctx context.Context, samples []string) (string, error) {
	prompt, err := BuildPrompt(samples)
	if err != nil {
		return "", fmt.Errorf("building prompt: %w", err)
	}
	fallback := Fallback(samples)

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.completer.Complete(callCtx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		l.logger.Warn("labeling failed, using centroid text", "error", err)
		return fallback, nil
	}

	label, err := parseResponse(raw)
	if err == nil {
		return label, nil
	}

	raw, err = l.completer.Complete(callCtx, prompt+retryPromptSuffix)
	if err != nil {
		l.logger.Warn("labeling retry failed, using centroid text", "error", err)
		return fallback, nil
	}
	label, err = parseResponse(raw)
	if err != nil {
		l.logger.Warn("unparseable label after retry, using centroid text", "error", err)
		return fallback, nil
	}
	return label, nil
}

// Fallback builds a label from the first non-empty sample.
func Fallback(samples []string) string {
	for _, s := range samples {
		if s = truncate(s, fallbackChars); s != "" {
			return s
		}
	}
	return ""
}

// truncate collapses whitespace and cuts s to at most n runes, marking the
// cut with an ellipsis.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
