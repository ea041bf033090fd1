package model

import (
	"sync"
	"time"
)

// EndpointHealth is a snapshot of an endpoint's circuit-breaker state.
type EndpointHealth struct {
	// Available indicates if the endpoint is currently usable.
	Available bool `json:"available"`

	// LastSuccess is the time of the last successful completion call.
	LastSuccess time.Time `json:"last_success,omitempty"`

	// LastFailure is the time of the last failed completion call.
	LastFailure time.Time `json:"last_failure,omitempty"`

	// FailureCount is the number of consecutive failures.
	FailureCount int `json:"failure_count"`

	// CircuitOpen indicates if the circuit breaker has tripped.
	CircuitOpen bool `json:"circuit_open"`

	// CircuitOpenedAt is when the circuit was opened.
	CircuitOpenedAt time.Time `json:"circuit_opened_at,omitempty"`
}

// HealthConfig configures circuit-breaker behavior.
type HealthConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long an open circuit blocks requests before
	// allowing a test request through (half-open).
	RecoveryTimeout time.Duration
}

// DefaultHealthConfig returns sensible circuit-breaker defaults.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// healthState tracks per-endpoint circuit-breaker state.
type healthState struct {
	mu       sync.RWMutex
	config   HealthConfig
	statuses map[string]*EndpointHealth
}

func newHealthState(cfg HealthConfig) *healthState {
	return &healthState{
		config:   cfg,
		statuses: make(map[string]*EndpointHealth),
	}
}

// ensureHealth lazily initializes the health tracker.
func (r *Registry) ensureHealth() *healthState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		r.health = newHealthState(DefaultHealthConfig())
	}
	return r.health
}

// MarkEndpointSuccess records a successful completion call and closes
// the circuit if it was open.
func (r *Registry) MarkEndpointSuccess(name string) {
	h := r.ensureHealth()

	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok {
		status = &EndpointHealth{}
		h.statuses[name] = status
	}

	status.LastSuccess = time.Now()
	status.FailureCount = 0
	status.Available = true
	status.CircuitOpen = false
}

// MarkEndpointFailure records a failed completion call. The circuit opens
// once consecutive failures reach the threshold.
func (r *Registry) MarkEndpointFailure(name string) {
	h := r.ensureHealth()

	h.mu.Lock()
	defer h.mu.Unlock()

	status, ok := h.statuses[name]
	if !ok {
		status = &EndpointHealth{Available: true}
		h.statuses[name] = status
	}

	status.LastFailure = time.Now()
	status.FailureCount++

	if status.FailureCount >= h.config.FailureThreshold {
		status.CircuitOpen = true
		status.CircuitOpenedAt = time.Now()
		status.Available = false
	}
}

// IsEndpointAvailable reports whether an endpoint should receive requests.
// An open circuit blocks requests until the recovery timeout passes, after
// which a single test request is allowed through (half-open).
func (r *Registry) IsEndpointAvailable(name string) bool {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()

	if h == nil {
		return true // No health tracking yet
	}

	h.mu.RLock()
	status, ok := h.statuses[name]
	if !ok {
		h.mu.RUnlock()
		return true // Never called = available
	}
	circuitOpen := status.CircuitOpen
	circuitOpenedAt := status.CircuitOpenedAt
	recoveryTimeout := h.config.RecoveryTimeout
	h.mu.RUnlock()

	if !circuitOpen {
		return true
	}

	return time.Since(circuitOpenedAt) > recoveryTimeout
}

// GetEndpointHealth returns a copy of the health status for an endpoint,
// or nil when no calls have been recorded.
func (r *Registry) GetEndpointHealth(name string) *EndpointHealth {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()

	if h == nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	status, ok := h.statuses[name]
	if !ok {
		return nil
	}
	snapshot := *status
	return &snapshot
}

// GetAvailableFallbackChain returns the fallback chain filtered to endpoints
// whose circuit is closed (or half-open). When every endpoint is blocked the
// full chain is returned; trying something beats failing immediately.
func (r *Registry) GetAvailableFallbackChain(cap Capability) []string {
	chain := r.GetFallbackChain(cap)
	available := make([]string, 0, len(chain))

	for _, name := range chain {
		if r.IsEndpointAvailable(name) {
			available = append(available, name)
		}
	}

	if len(available) == 0 {
		return chain
	}
	return available
}

// SetHealthConfig updates the circuit-breaker configuration.
func (r *Registry) SetHealthConfig(cfg HealthConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		r.health = newHealthState(cfg)
		return
	}

	r.health.mu.Lock()
	r.health.config = cfg
	r.health.mu.Unlock()
}

// ResetEndpointHealth clears the recorded state for an endpoint.
func (r *Registry) ResetEndpointHealth(name string) {
	r.mu.RLock()
	h := r.health
	r.mu.RUnlock()

	if h == nil {
		return
	}

	h.mu.Lock()
	delete(h.statuses, name)
	h.mu.Unlock()
}
