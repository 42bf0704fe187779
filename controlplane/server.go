// Package controlplane implements the HTTP+SSE collaborator this module
// describes by interface contract only: job submission over HTTP and a
// Server-Sent-Events feed of the event bus. Routing follows
// r3e-network-service_layer's chi-based service layer, the only other
// repo in the pack running an HTTP API.
package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/castellan/extract/eventbus"
	"github.com/castellan/extract/extract"
	"github.com/castellan/extract/log"
	"github.com/castellan/extract/types"
)

// keepAliveInterval is the SSE keep-alive comment cadence.
const keepAliveInterval = 15 * time.Second

// Server wires the Extractor pipeline and event bus behind an HTTP API.
type Server struct {
	extractor *extract.Extractor
	bus       *eventbus.Bus
	logger    *log.Logger
}

// NewServer returns a Server dispatching jobs through extractor and
// streaming extractor-published events from bus.
func NewServer(extractor *extract.Extractor, bus *eventbus.Bus) *Server {
	return &Server{
		extractor: extractor,
		bus:       bus,
		logger:    log.NewLogger(log.Context{}),
	}
}

// Router builds the chi router exposing this server's endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/jobs/extract", s.handleSubmitJob)
	r.Get("/events/stream", s.handleEventStream)
	return r
}

type submitJobRequest struct {
	SourcePath string `json:"source_path"`
	OutputDir  string `json:"output_dir"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

// handleSubmitJob implements POST /jobs/extract: accepts a
// source/output pair, runs the job asynchronously, and returns its id
// immediately. Errors discovered before acceptance (a malformed body) are
// plain-text 4xx; errors discovered during the run are only observable on
// the event stream, per the async contract.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePlainError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SourcePath == "" || req.OutputDir == "" {
		writePlainError(w, http.StatusBadRequest, "source_path and output_dir are required")
		return
	}

	job := types.NewJob(uuid.NewString(), req.SourcePath, req.OutputDir)

	go func() {
		if _, err := s.extractor.Run(context.WithoutCancel(r.Context()), job); err != nil {
			s.logger.Warn("job run failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(submitJobResponse{JobID: job.ID})
}

// handleEventStream implements GET /events/stream: an SSE
// feed of every ExtractionEvent published to the bus, with a keep-alive
// comment every 15s and silent lag resumption (a Lagged signal is dropped,
// not surfaced as an SSE event — the subscriber resumes at the newest
// event with no special handling required on its end).
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writePlainError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.bus.Subscribe()
	defer sub.Close()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			if msg.Lag != nil {
				continue
			}
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: extraction\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}
