package webhookrelay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/castellan/extract/iox"
)

func TestPublish_Success(t *testing.T) {
	var gotMethod, gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	r, err := New(Config{URL: ts.URL, Retries: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer iox.DiscardClose(r)

	if err := r.Publish(context.Background(), []byte(`{"job_id":"job-1"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content-type = %q, want application/json", gotContentType)
	}
}

func TestPublish_4xxIsNonRetriable(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	r, err := New(Config{URL: ts.URL, Retries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer iox.DiscardClose(r)

	if err := r.Publish(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected an error for a 4xx response")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retriable error, got %d", attempts)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error when URL is empty")
	}
}
