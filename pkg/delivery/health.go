package delivery

import (
	"sync"
	"time"
)

// Health tracks whether a provider should be considered available.
// Repeated configuration and terminal failures trip the guard so the
// orchestrator stops issuing calls doomed to fail (account suspended,
// balance exhausted). After the recovery timeout a single probe call
// is let through; one success closes the guard again. Safe for
// concurrent use.
type Health struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	failures    int
	tripped     bool
	lastFailure time.Time
	probing     bool
}

// NewHealth creates a provider health guard. Non-positive arguments
// fall back to defaults: 5 failures, 30 second recovery window.
func NewHealth(failureThreshold int, recoveryTimeout time.Duration) *Health {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &Health{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Allow reports whether the provider may be called right now.
func (h *Health) Allow() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.tripped {
		return true
	}
	if time.Since(h.lastFailure) > h.recoveryTimeout {
		// Let a single probe through to test recovery.
		if !h.probing {
			h.probing = true
			return true
		}
	}
	return false
}

// RecordSuccess resets the failure counter and closes a tripped guard.
func (h *Health) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures = 0
	h.tripped = false
	h.probing = false
}

// RecordFailure counts an account-level failure. Validation and
// transient errors must not be recorded here; they say nothing about
// provider health.
func (h *Health) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastFailure = time.Now()
	h.probing = false
	h.failures++
	if h.failures >= h.failureThreshold {
		h.tripped = true
	}
}

// Tripped reports whether the guard currently blocks calls.
func (h *Health) Tripped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.tripped && time.Since(h.lastFailure) <= h.recoveryTimeout
}
