package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
			<div class="handle"> Foo Bar </div>
			<div class="handle">quux</div>
			<div class="other">ignored</div>
			<div class="handle">  </div>
		</body></html>`))
	}))
	defer ts.Close()

	f := NewHTTPFeed(ts.URL, ".handle", ts.Client(), zerolog.Nop())
	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := []string{"Foo Bar", "quux"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %v, want %v", got, want)
	}
}

func TestFetchPlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Foo Bar\n\n  quux  \n"))
	}))
	defer ts.Close()

	f := NewHTTPFeed(ts.URL, ".handle", ts.Client(), zerolog.Nop())
	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := []string{"Foo Bar", "quux"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %v, want %v", got, want)
	}
}

func TestFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	f := NewHTTPFeed(ts.URL, ".handle", ts.Client(), zerolog.Nop())
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() error = nil, want error")
	}
}
