// Package performance aggregates operation timings for the collector's
// page view operations.
package performance

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"
)

// DefaultSlowThreshold marks an operation as slow when it takes longer.
const DefaultSlowThreshold = 250 * time.Millisecond

// Marker represents a single in-flight operation measurement
type Marker struct {
	Operation string
	PageView  string
	StartTime time.Time
	err       error
	tracker   *Tracker
	completed bool
}

// SetError marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.err = err
	}
}

// Complete records the operation. Calling it twice is a no-op.
func (m *Marker) Complete() {
	if m == nil || m.completed {
		return
	}
	m.completed = true
	m.tracker.record(m, time.Since(m.StartTime))
}

// OperationStats summarizes every completed run of one operation
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	Slow      int64         `json:"slow"`
	Total     time.Duration `json:"total"`
	Max       time.Duration `json:"max"`
}

// Average returns the mean duration
func (s OperationStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Tracker aggregates operation timings and logs slow operations
type Tracker struct {
	stats         map[string]*OperationStats
	slowThreshold time.Duration
	started       time.Time
	logger        *slog.Logger
	mu            sync.Mutex
}

// NewTracker creates a tracker. A non-positive threshold selects the default.
func NewTracker(slowThreshold time.Duration, logger *slog.Logger) *Tracker {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &Tracker{
		stats:         make(map[string]*OperationStats),
		slowThreshold: slowThreshold,
		started:       time.Now(),
		logger:        logger,
	}
}

// StartOperation begins measuring an operation
func (t *Tracker) StartOperation(operation, pageViewID string) *Marker {
	return &Marker{
		Operation: operation,
		PageView:  pageViewID,
		StartTime: time.Now(),
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker, d time.Duration) {
	t.mu.Lock()
	s, ok := t.stats[m.Operation]
	if !ok {
		s = &OperationStats{Operation: m.Operation}
		t.stats[m.Operation] = s
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
	if m.err != nil {
		s.Errors++
	}
	slow := d > t.slowThreshold
	if slow {
		s.Slow++
	}
	t.mu.Unlock()

	if slow && t.logger != nil {
		t.logger.Warn("Slow operation", "operation", m.Operation, "pageViewId", m.PageView, "duration", d)
	}
}

// Stats returns per-operation summaries sorted by operation name
func (t *Tracker) Stats() []OperationStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OperationStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// GetOverallStats returns overall tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	t.mu.Lock()
	var total, errs int64
	for _, s := range t.stats {
		total += s.Count
		errs += s.Errors
	}
	t.mu.Unlock()

	return map[string]any{
		"trackerUptime":       time.Since(t.started).String(),
		"completedOperations": total,
		"failedOperations":    errs,
		"memoryUsageMB":       memStats.Alloc / (1024 * 1024),
		"systemMemoryMB":      memStats.Sys / (1024 * 1024),
		"goroutines":          runtime.NumGoroutine(),
	}
}
