package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps in-process counters for HTTP traffic and engine outcomes.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu       sync.Mutex
	outcomes map[string]map[string]uint64
}

func New() *Collector {
	return &Collector{outcomes: map[string]map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Outcome counts one engine operation result; code is "ok" on success.
func (c *Collector) Outcome(operation, code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byCode, ok := c.outcomes[operation]
	if !ok {
		byCode = map[string]uint64{}
		c.outcomes[operation] = byCode
	}
	byCode[code]++
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	ops := make([]string, 0, len(c.outcomes))
	for op := range c.outcomes {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	outcomes := make(map[string]map[string]uint64, len(ops))
	for _, op := range ops {
		copied := make(map[string]uint64, len(c.outcomes[op]))
		for code, n := range c.outcomes[op] {
			copied[code] = n
		}
		outcomes[op] = copied
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal": atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"engineOutcomes":   outcomes,
	}
}
