package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestWebhookSend(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %v, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %v, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, ts.Client(), zerolog.Nop())
	if err := n.Send(context.Background(), "- Foo Bar (score 400)"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Content != "- Foo Bar (score 400)" {
		t.Errorf("content = %q, want digest line", got.Content)
	}
}

func TestWebhookSendFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, ts.Client(), zerolog.Nop())
	if err := n.Send(context.Background(), "page"); err == nil {
		t.Fatal("Send() error = nil, want error")
	}
}
