package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestBuildDiscordPayload(t *testing.T) {
	payload := BuildDiscordPayload(testSummary())

	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]

	if embed.Title != "Near-duplicate clusters in issues" {
		t.Errorf("unexpected title %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "13 of 16") {
		t.Errorf("unexpected description %q", embed.Description)
	}
	if len(embed.Fields) != 1 || !strings.Contains(embed.Fields[0].Value, "crash on startup") {
		t.Errorf("unexpected fields %+v", embed.Fields)
	}
	if embed.Footer == nil || !strings.Contains(embed.Footer.Text, "run abc123") {
		t.Errorf("unexpected footer %+v", embed.Footer)
	}
}

func TestBuildDiscordPayload_FieldLimit(t *testing.T) {
	s := testSummary()
	for i := range s.Clusters {
		s.Clusters[i].Description = strings.Repeat("x", 2000)
	}

	value := BuildDiscordPayload(s).Embeds[0].Fields[0].Value
	if n := len([]rune(value)); n > discordFieldLimit {
		t.Errorf("field value has %d runes, limit is %d", n, discordFieldLimit)
	}
}

func TestDiscordNotifier_Notify(t *testing.T) {
	var received discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewDiscordNotifier(srv.URL).Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(received.Embeds) != 1 {
		t.Error("expected payload to be received")
	}
}

func TestDiscordNotifier_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if err := NewDiscordNotifier(srv.URL).Notify(context.Background(), testSummary()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}
