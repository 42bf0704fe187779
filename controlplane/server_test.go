package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/castellan/extract/decompress"
	"github.com/castellan/extract/eventbus"
	"github.com/castellan/extract/extract"
	"github.com/castellan/extract/plugin"
	"github.com/castellan/extract/types"
)

func eventFixture() types.ExtractionEvent {
	return types.NewJobStateChange("job-1", time.Now(), types.JobRunning, "")
}

func TestHandleSubmitJob_MissingFieldsRejected(t *testing.T) {
	srv := NewServer(extract.New(extract.Config{Registry: plugin.NewRegistry()}), eventbus.New(0))

	req := httptest.NewRequest(http.MethodPost, "/jobs/extract", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "source_path") {
		t.Fatalf("body = %q, want a plain-text reason naming source_path", rec.Body.String())
	}
}

func TestHandleSubmitJob_AcceptsAndReturnsJobID(t *testing.T) {
	srv := NewServer(extract.New(extract.Config{Registry: plugin.NewRegistry(), Limits: decompress.DefaultLimits()}), eventbus.New(0))

	body, _ := json.Marshal(submitJobRequest{SourcePath: "/no/such/file", OutputDir: t.TempDir()})
	req := httptest.NewRequest(http.MethodPost, "/jobs/extract", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp submitJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected a non-empty job_id")
	}
}

func TestHandleEventStream_DeliversPublishedEvents(t *testing.T) {
	bus := eventbus.New(0)
	srv := NewServer(extract.New(extract.Config{Registry: plugin.NewRegistry()}), bus)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(eventFixture())

	<-done

	if !strings.Contains(rec.Body.String(), "event: extraction") {
		t.Fatalf("body = %q, want an extraction SSE event", rec.Body.String())
	}
}
