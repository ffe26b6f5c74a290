// Package health serves Kubernetes-style /livez and /readyz probes.
//
// All registered probes are re-evaluated on a single shared ticker. A probe
// only flips to failing after three consecutive errors, so one slow database
// ping does not take the service out of rotation; a single success flips it
// back.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// CheckFunc reports whether a single dependency is usable. A nil return means
// healthy.
type CheckFunc func(ctx context.Context) error

// failStreak is how many consecutive errors it takes before a probe is
// reported as failing.
const failStreak = 3

type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	streak  int
	failing bool
	lastErr error
}

func (p *probe) eval(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.fn(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.streak++
		if p.streak >= failStreak {
			p.failing = true
		}
		return
	}
	p.streak = 0
	p.failing = false
}

func (p *probe) status() (failing bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failing, p.lastErr
}

// Health tracks liveness and readiness probes for the service.
type Health struct {
	ready  atomic.Bool
	mu     sync.Mutex
	live   []*probe
	reads  []*probe
	cancel context.CancelFunc
}

// New returns a Health in the not-ready state. Call SetReady(true) once
// startup finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe for /livez. Liveness probes answer "is
// this process worth keeping alive" (goroutine leaks, deadlocks).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = append(h.live, &probe{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a probe for /readyz. Readiness probes answer
// "can this process serve traffic right now" (database reachability).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reads = append(h.reads, &probe{name: name, timeout: timeout, fn: fn})
}

// Start launches the background goroutine that re-evaluates every probe on
// the given interval. All probes run once immediately so the first /readyz
// answer is not stale.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.live)+len(h.reads))
	probes = append(probes, h.live...)
	probes = append(probes, h.reads...)
	h.mu.Unlock()

	go func() {
		for _, p := range probes {
			p.eval(ctx)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.eval(ctx)
				}
			}
		}
	}()
}

// SetReady flips the manual readiness gate. Pass false during graceful
// shutdown so load balancers stop routing new requests here.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.Lock()
	probes := h.reads
	h.mu.Unlock()

	for _, p := range probes {
		if failing, _ := p.status(); failing {
			return false
		}
	}
	return true
}

// Stop cancels the probe goroutine. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint handles /livez: 200 when every liveness probe passes, 503 with
// per-probe errors otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	probes := make([]*probe, len(h.live))
	copy(probes, h.live)
	h.mu.Unlock()

	writeReport(w, failures(probes))
}

// ReadyEndpoint handles /readyz: 200 only when the manual gate is open and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	probes := make([]*probe, len(h.reads))
	copy(probes, h.reads)
	h.mu.Unlock()

	failed := failures(probes)
	if !h.ready.Load() {
		failed["_gate"] = "service is not ready"
	}
	writeReport(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		failing, err := p.status()
		if !failing {
			continue
		}
		if err != nil {
			failed[p.name] = err.Error()
		} else {
			failed[p.name] = "failing"
		}
	}
	return failed
}

func writeReport(w http.ResponseWriter, failed map[string]string) {
	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		report.Status = "unhealthy"
		report.Checks = failed
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// GoroutineCountCheck returns a liveness probe that fails once the goroutine
// count climbs past limit. Catches leaked workers before the process OOMs.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit is %d", n, limit)
		}
		return nil
	}
}
