package scryfall

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gateWait records how long callers block on the politeness gate.
var gateWait = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "scryfall_gate_wait_seconds",
	Help:    "Time spent waiting on the outbound politeness gate.",
	Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
})

func init() {
	prometheus.MustRegister(gateWait)
}

// RateGate serializes outbound calls to the upstream API to at most one per
// interval, process-wide.
//
// The check, the wait, and the grant-time update form one critical section:
// the mutex is held across the sleep so that two callers arriving together
// can never both observe "enough time has passed" and proceed. Callers are
// granted passage in the order they enter the critical section; no fairness
// beyond that is guaranteed.
type RateGate struct {
	interval time.Duration

	mu        sync.Mutex
	lastGrant time.Time
}

// NewRateGate constructs a gate with the given minimum spacing between
// grants. Intervals <= 0 are coerced to the upstream-friendly 100ms default.
func NewRateGate(interval time.Duration) *RateGate {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &RateGate{interval: interval}
}

// Acquire blocks until at least one interval has elapsed since the previous
// grant, then records the new grant time and returns. When ctx is cancelled
// mid-wait the grant is not recorded and ctx's error is returned.
func (g *RateGate) Acquire(ctx context.Context) error {
	start := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := g.interval - time.Since(g.lastGrant); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.lastGrant = time.Now()
	gateWait.Observe(time.Since(start).Seconds())
	return nil
}
