package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Startup steps reported by the health check
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepTemplates  = "Loading templates"
	StepExercises  = "Loading exercise data"
	StepSnapshots  = "Opening snapshot store"
)

// StartupStep is one initialization step
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Readiness tracks server initialization for the health check
type Readiness struct {
	mu    sync.RWMutex
	ready bool
	steps []StartupStep
}

// NewReadiness creates a tracker with the given steps pending
func NewReadiness(steps ...string) *Readiness {
	r := &Readiness{}
	for _, name := range steps {
		r.steps = append(r.steps, StartupStep{Name: name})
	}
	return r
}

// CompleteStep marks a step as completed
func (r *Readiness) CompleteStep(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.steps {
		if r.steps[i].Name == name {
			r.steps[i].Completed = true
			return
		}
	}
}

// MarkReady marks the server as fully initialized
func (r *Readiness) MarkReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = true
}

// IsReady returns whether the server is fully initialized
func (r *Readiness) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

type healthResponse struct {
	Ready    bool          `json:"ready"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// ShowHealth reports initialization progress, with 503 until the server is ready
func (r *Readiness) ShowHealth(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	resp := healthResponse{Ready: r.ready, Steps: append([]StartupStep(nil), r.steps...)}
	r.mu.RUnlock()

	completed := 0
	for _, step := range resp.Steps {
		if step.Completed {
			completed++
		}
	}
	switch {
	case resp.Ready:
		resp.Progress = 100
	case len(resp.Steps) > 0:
		resp.Progress = completed * 100 / len(resp.Steps)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Gate answers 503 for every path but the health check and metrics until
// the server is ready
func (r *Readiness) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		open := req.URL.Path == "/healthz" || req.URL.Path == "/metrics"
		if !open && !r.IsReady() {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "Server is starting up, please retry shortly", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, req)
	})
}
