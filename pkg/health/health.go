// Package health provides readiness state tracking, dependency checks and
// HTTP health check handlers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// defaultCheckTimeout bounds each dependency check.
const defaultCheckTimeout = 2 * time.Second

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// Checker tracks the readiness state of the gateway and its dependencies.
// It is safe for concurrent use.
type Checker struct {
	state   atomic.Int32
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{
		timeout: defaultCheckTimeout,
		checks:  make(map[string]CheckFunc),
	}
}

// AddCheck registers a named dependency check run by the readiness handler.
func (c *Checker) AddCheck(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// SetCheckTimeout changes the per-check timeout.
func (c *Checker) SetCheckTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// Run executes every registered check concurrently and returns the failures
// keyed by check name.
func (c *Checker) Run(ctx context.Context) map[string]error {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures = make(map[string]error)
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			if err := fn(cctx); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failures
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and every dependency check passes, and 503 otherwise.
// Use this for K8s readinessProbe (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}

		failures := c.Run(r.Context())
		resp := healthResponse{Status: c.State()}
		c.mu.RLock()
		if len(c.checks) > 0 {
			resp.Checks = make(map[string]string, len(c.checks))
			names := make([]string, 0, len(c.checks))
			for name := range c.checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				resp.Checks[name] = "ok"
				if err, failed := failures[name]; failed {
					resp.Checks[name] = err.Error()
				}
			}
		}
		c.mu.RUnlock()

		if len(failures) > 0 {
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
