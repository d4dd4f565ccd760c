package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamaly87/codesearch/pkg/config"
)

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	gw := NewOpenAIGateway(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", MaxRetries: 2})
	text, err := gw.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "hello there" {
		t.Errorf("unexpected completion: %q", text)
	}
}

func TestCompleteRetriesOn500(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	gw := NewOpenAIGateway(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", MaxRetries: 3})
	text, err := gw.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "ok" || calls != 2 {
		t.Errorf("expected a retry then success, got text=%q calls=%d", text, calls)
	}
}

func TestCompleteNonRetryable4xx(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	gw := NewOpenAIGateway(config.LLMConfig{BaseURL: srv.URL, Model: "test-model", MaxRetries: 3})
	_, err := gw.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Errorf("expected no retries on 400, got %d calls", calls)
	}
}

func TestStubGatewayComplete(t *testing.T) {
	gw := &StubGateway{Response: "stubbed"}
	text, err := gw.Complete(context.Background(), Request{})
	if err != nil || text != "stubbed" {
		t.Fatalf("unexpected stub result: %q err=%v", text, err)
	}
}
