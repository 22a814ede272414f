package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStatus is the outcome of the most recent sync run.
type RunStatus struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	Marker     string    `json:"marker"`
	Ingested   int       `json:"ingested"`
	Duplicates int       `json:"duplicates"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Health tracks the last run for /healthz.
type Health struct {
	mu        sync.RWMutex
	last      *RunStatus
	startedAt time.Time
}

// NewHealth creates an empty tracker.
func NewHealth() *Health {
	return &Health{startedAt: time.Now()}
}

// Record stores the outcome of a run.
func (h *Health) Record(status RunStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &status
}

// Last returns the last recorded run, if any.
func (h *Health) Last() (RunStatus, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return RunStatus{}, false
	}
	return *h.last, true
}

type healthResponse struct {
	Status  string     `json:"status"`
	Uptime  string     `json:"uptime"`
	LastRun *RunStatus `json:"last_run,omitempty"`
}

// ServeHTTP reports 200 until a run fails, then 503 until a run succeeds.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.last != nil {
		last := *h.last
		resp.LastRun = &last
		if last.State == "FAILED" {
			resp.Status = "failing"
		}
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// RegisterOps registers /healthz and /metrics.
func RegisterOps(s Service, h *Health) {
	s.Router().Handle("/healthz", h).Methods(http.MethodGet)
	s.Router().Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}
