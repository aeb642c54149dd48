// Package reporting provides the analytics sinks engagement reports are forwarded to.
package reporting

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/messaging"
)

// LogSink writes every report as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging to the given channel logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(event string, props engagement.Properties) {
	s.logger.Info("Engagement event", "event", event, "properties", map[string]any(props))
}

// BroadcastSink publishes reports to the live streams of one page view.
type BroadcastSink struct {
	broadcaster messaging.Broadcaster
	pageViewID  string
	now         func() time.Time
}

// NewBroadcastSink binds a sink to a page view.
func NewBroadcastSink(b messaging.Broadcaster, pageViewID string, now func() time.Time) *BroadcastSink {
	if now == nil {
		now = time.Now
	}
	return &BroadcastSink{broadcaster: b, pageViewID: pageViewID, now: now}
}

func (s *BroadcastSink) Report(event string, props engagement.Properties) {
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	s.broadcaster.Publish(s.pageViewID, messaging.Message{
		Event:      event,
		PageViewID: s.pageViewID,
		Properties: copied,
		Timestamp:  s.now().UTC(),
	})
}

// Fanout forwards each report to every non-nil sink, isolating failures.
type Fanout []engagement.Reporter

func (f Fanout) Report(event string, props engagement.Properties) {
	for _, r := range f {
		if r == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			r.Report(event, props)
		}()
	}
}

// Counter counts reports per event name; the health endpoint exposes it.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

func (c *Counter) Report(event string, _ engagement.Properties) {
	c.mu.Lock()
	c.counts[event]++
	c.mu.Unlock()
}

// Snapshot returns a copy of the per-event counts.
func (c *Counter) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
