package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storyart/internal/beats"
	"storyart/internal/config"
	"storyart/internal/services"
)

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.Backend.RequestTimeout = 5
	return &cfg
}

func TestNewSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/API/GetNewSession" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-42"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	id, err := client.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if id != "sess-42" {
		t.Fatalf("unexpected session id %q", id)
	}
}

func TestGenerateReturnsRawReferences(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/API/GenerateText2Image" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"images": []string{"2026-08-23/abc.png"},
		})
	}))
	defer server.Close()

	start := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	client := NewClient(testConfig(server.URL), WithClock(func() time.Time { return start }))
	raw, err := client.Generate(context.Background(), GenerateRequest{
		SessionID: "sess-1",
		Prompt:    "harbor at dawn",
		Images:    1,
		Params:    beats.GenerationParams{Width: 1920, Height: 1080, Steps: 30},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(raw.Refs) != 1 || raw.Refs[0] != "2026-08-23/abc.png" {
		t.Fatalf("unexpected refs %v", raw.Refs)
	}
	if !raw.RequestStart.Equal(start) {
		t.Fatalf("request start not recorded: %v", raw.RequestStart)
	}
	if gotPayload["session_id"] != "sess-1" {
		t.Fatalf("session id not forwarded: %v", gotPayload)
	}
	if gotPayload["width"] != float64(1920) {
		t.Fatalf("params not forwarded: %v", gotPayload)
	}
}

func TestGenerateRejectionFailsWithoutRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "prompt blocked"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), WithSleeper(func(time.Duration) {
		t.Fatal("rejection must not trigger backoff")
	}))
	_, err := client.Generate(context.Background(), GenerateRequest{SessionID: "s", Prompt: "p"})
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
}

func TestGenerateBackendErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error_id": "invalid_session_id"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Generate(context.Background(), GenerateRequest{SessionID: "stale", Prompt: "p"})
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected ErrBackend for error envelope, got %v", err)
	}
}

func TestGenerateRetryLadderOnServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(testConfig(server.URL), WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))
	_, err := client.Generate(context.Background(), GenerateRequest{SessionID: "s", Prompt: "p"})
	if err == nil {
		t.Fatal("expected failure after retry ladder")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, slept)
		}
	}
}

func TestGenerateRetryThenSuccess(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{"abc.png"}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(testConfig(server.URL), WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))
	raw, err := client.Generate(context.Background(), GenerateRequest{SessionID: "s", Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(raw.Refs) != 1 {
		t.Fatalf("unexpected refs %v", raw.Refs)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected single 2s delay, got %v", slept)
	}
}

func TestStatusDegradesGracefully(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	server.Close() // connection refused

	client := NewClient(testConfig(server.URL))
	status := client.Status(context.Background(), "sess")
	if status != (QueueStatus{}) {
		t.Fatalf("expected zero-value status, got %+v", status)
	}
}

func TestStatusReturnsQueueDepth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/API/GetCurrentStatus" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]int{"waiting_gens": 2, "live_gens": 1},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	status := client.Status(context.Background(), "sess")
	if status.WaitingGens != 2 || status.LiveGens != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}
