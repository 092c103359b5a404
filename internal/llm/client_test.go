package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"aimas-backend/services/recommendation-service/internal/event"
)

func testClient(url string) *Client {
	c := New("test-key", 2*time.Second)
	c.BaseURL = url
	return c
}

func TestAdviseParsesCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "system.cpu") {
			t.Errorf("event JSON missing from prompt: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Scale out.\n\n  Check hot paths.  \n"}},
			},
		})
	}))
	defer srv.Close()

	advisories, err := testClient(srv.URL).Advise(context.Background(), event.MetricEvent{Type: "system.cpu", Metrics: map[string]any{"usage_pct": 97.0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Scale out.", "Check hot paths."}
	if !reflect.DeepEqual(advisories, want) {
		t.Fatalf("got %v, want %v", advisories, want)
	}
}

func TestAdviseSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Advise(context.Background(), event.MetricEvent{Type: "system.cpu"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestAdviseEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Advise(context.Background(), event.MetricEvent{Type: "system.cpu"})
	if err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestAdviseRequiresAPIKey(t *testing.T) {
	c := New("", time.Second)
	if _, err := c.Advise(context.Background(), event.MetricEvent{Type: "system.cpu"}); err == nil {
		t.Fatal("expected error without api key")
	}
}
