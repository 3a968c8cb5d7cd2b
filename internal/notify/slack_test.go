package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestBuildSlackPayload_Structure(t *testing.T) {
	payload := BuildSlackPayload(testSummary())

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}

	blocks, ok := parsed["blocks"].([]interface{})
	if !ok {
		t.Fatal("expected blocks array")
	}
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}

	header := blocks[0].(map[string]interface{})
	if header["type"] != "header" {
		t.Errorf("expected header block, got %q", header["type"])
	}
	headerText := header["text"].(map[string]interface{})
	if headerText["text"] != "Near-duplicate clusters in issues" {
		t.Errorf("unexpected header text: %v", headerText["text"])
	}

	coverage := blocks[1].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	if !strings.Contains(coverage, "13 of 16 documents") {
		t.Errorf("coverage block = %q", coverage)
	}

	clusters := blocks[2].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	if !strings.Contains(clusters, "login fails after update") {
		t.Errorf("clusters block = %q", clusters)
	}

	ctxBlock := blocks[3].(map[string]interface{})
	if ctxBlock["type"] != "context" {
		t.Errorf("expected context block, got %q", ctxBlock["type"])
	}
}

func TestBuildSlackPayload_NoClusters(t *testing.T) {
	s := testSummary()
	s.Clusters = nil
	s.Clustered = 0

	payload := BuildSlackPayload(s)
	if len(payload.Blocks) != 3 {
		t.Errorf("expected header, coverage and context blocks only, got %d", len(payload.Blocks))
	}
}

func TestSlackNotifier_Notify(t *testing.T) {
	var received slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(received.Blocks) == 0 {
		t.Error("expected payload to be received")
	}
}

func TestSlackNotifier_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), testSummary()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSlackNotifier_FailsAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid_blocks"))
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).Notify(context.Background(), testSummary())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid_blocks") {
		t.Errorf("expected response body in error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}
