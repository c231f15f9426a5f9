// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector. It outputs text/plain in Prometheus exposition format without
// requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process-wide collector.
var Default = NewCollector()

// Collector aggregates named counters.
type Collector struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		startTime: time.Now(),
	}
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter registers (or returns the existing) counter with the given name.
func (c *Collector) Counter(name, help string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.counters[name]; ok {
		return existing
	}
	ctr := &Counter{name: name, help: help}
	c.counters[name] = ctr
	return ctr
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// ServeHTTP renders all metrics in Prometheus exposition format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c.mu.Lock()
	names := make([]string, 0, len(c.counters))
	for name := range c.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	counters := make([]*Counter, 0, len(names))
	for _, name := range names {
		counters = append(counters, c.counters[name])
	}
	c.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, ctr := range counters {
		if ctr.help != "" {
			fmt.Fprintf(w, "# HELP %s %s\n", ctr.name, ctr.help)
		}
		fmt.Fprintf(w, "# TYPE %s counter\n", ctr.name)
		fmt.Fprintf(w, "%s %d\n", ctr.name, ctr.Value())
	}
	fmt.Fprintf(w, "# TYPE embedbot_uptime_seconds gauge\n")
	fmt.Fprintf(w, "embedbot_uptime_seconds %.0f\n", c.Uptime().Seconds())
}

// Well-known counters.
var (
	MessagesSeen   = Default.Counter("embedbot_messages_seen_total", "Inbound messages observed by the dispatcher")
	LinksMatched   = Default.Counter("embedbot_links_matched_total", "Messages matched to a platform adapter")
	Reposts        = Default.Counter("embedbot_reposts_total", "Successful impersonated reposts")
	RepostFallback = Default.Counter("embedbot_repost_fallback_total", "Reposts delivered without impersonation")
	DispatchErrors = Default.Counter("embedbot_dispatch_errors_total", "Messages aborted on a hard adapter error")
)
