package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters for HTTP traffic and leave
// workflow outcomes.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	totalDurationMs uint64

	mu       sync.Mutex
	outcomes map[string]uint64
}

func New() *Collector {
	return &Collector{outcomes: make(map[string]uint64)}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddUint64(&c.errorRequests, 1)
	case status >= 400:
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordLeaveOutcome counts workflow results such as "approved" or
// "rejected_balance_exceeded".
func (c *Collector) RecordLeaveOutcome(outcome string) {
	c.mu.Lock()
	c.outcomes["requests_"+outcome]++
	c.mu.Unlock()
}

func (c *Collector) Outcome(outcome string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes["requests_"+outcome]
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	clientErrs := atomic.LoadUint64(&c.clientErrors)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	keys := make([]string, 0, len(c.outcomes))
	for k := range c.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	leave := make(map[string]uint64, len(keys))
	for _, k := range keys {
		leave[k] = c.outcomes[k]
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       errs,
		"clientErrorsTotal": clientErrs,
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"leave":             leave,
	}
}
