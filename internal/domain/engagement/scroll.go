package engagement

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// ScrollConfig configures the scroll depth tracker.
type ScrollConfig struct {
	// Thresholds are the depth checkpoints, in percent. Default 25, 50, 75, 90.
	Thresholds []int
	// Debounce is the quiescence window before a scroll is evaluated. Default 100ms.
	Debounce time.Duration
}

// DefaultScrollConfig returns the documented defaults.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		Thresholds: []int{25, 50, 75, 90},
		Debounce:   100 * time.Millisecond,
	}
}

// ScrollDepthData is a snapshot of the scroll tracker.
type ScrollDepthData struct {
	DepthPercent      int   `json:"depthPercent"`
	MaxDepthPercent   int   `json:"maxDepthPercent"`
	CrossedThresholds []int `json:"crossedThresholds"`
	TimeOnPageMs      int64 `json:"timeOnPageMs"`
}

// ScrollDepthTracker reports first crossings of whole-page depth thresholds.
type ScrollDepthTracker struct {
	mu        sync.Mutex
	config    ScrollConfig
	clock     clock.Clock
	reporter  Reporter
	logger    *slog.Logger
	startedAt time.Time
	depth     int
	maxDepth  int
	crossed   map[int]bool
	latest    ScrollObservation
	pending   clock.Timer
	closed    bool
}

// NewScrollDepthTracker creates a tracker; the page-view clock starts now.
func NewScrollDepthTracker(config ScrollConfig, clk clock.Clock, reporter Reporter, logger *slog.Logger) *ScrollDepthTracker {
	if len(config.Thresholds) == 0 {
		config.Thresholds = DefaultScrollConfig().Thresholds
	}
	thresholds := slices.Clone(config.Thresholds)
	slices.Sort(thresholds)
	config.Thresholds = slices.Compact(thresholds)

	return &ScrollDepthTracker{
		config:    config,
		clock:     clk,
		reporter:  reporter,
		logger:    loggerOrDiscard(logger),
		startedAt: clk.Now(),
		crossed:   make(map[int]bool),
	}
}

// ScrollPercent converts window geometry to a whole-page depth in [0,100].
// A page that does not scroll has depth 0.
func ScrollPercent(scrollY, scrollHeight, viewportHeight float64) int {
	scrollable := scrollHeight - viewportHeight
	if scrollable <= 0 || math.IsNaN(scrollY) {
		return 0
	}
	return clampPercent(int(math.Round(scrollY / scrollable * 100)))
}

// HandleScroll records a scroll event; evaluation runs after the debounce window.
func (t *ScrollDepthTracker) HandleScroll(obs ScrollObservation) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.latest = obs
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if t.config.Debounce > 0 {
		t.pending = t.clock.AfterFunc(t.config.Debounce, t.flush)
		t.mu.Unlock()
		return
	}
	reports := t.evaluateLocked()
	t.mu.Unlock()

	emitAll(t.reporter, reports)
}

func (t *ScrollDepthTracker) flush() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	reports := t.evaluateLocked()
	t.mu.Unlock()

	emitAll(t.reporter, reports)
}

func (t *ScrollDepthTracker) evaluateLocked() []pendingReport {
	percent := ScrollPercent(t.latest.ScrollY, t.latest.ScrollHeight, t.latest.ViewportHeight)
	t.depth = percent
	if percent > t.maxDepth {
		t.maxDepth = percent
	}

	var reports []pendingReport
	for _, threshold := range t.config.Thresholds {
		if t.crossed[threshold] || percent < threshold {
			continue
		}
		t.crossed[threshold] = true
		reports = append(reports, pendingReport{
			event: EventScrollDepth,
			props: Properties{
				"threshold":            threshold,
				"time_to_threshold_ms": elapsedMillis(t.startedAt, t.clock.Now()),
				"max_depth":            t.maxDepth,
			},
		})
		t.logger.Debug("Scroll threshold crossed", "threshold", threshold, "maxDepth", t.maxDepth)
	}
	return reports
}

// ScrollDepthData returns the current snapshot.
func (t *ScrollDepthTracker) ScrollDepthData() ScrollDepthData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ScrollDepthData{
		DepthPercent:      t.depth,
		MaxDepthPercent:   t.maxDepth,
		CrossedThresholds: t.trackedLocked(),
		TimeOnPageMs:      elapsedMillis(t.startedAt, t.clock.Now()),
	}
}

// MaxDepth returns the high-water depth for this page view.
func (t *ScrollDepthTracker) MaxDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDepth
}

// TrackedThresholds returns the thresholds already reported, ascending.
func (t *ScrollDepthTracker) TrackedThresholds() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trackedLocked()
}

func (t *ScrollDepthTracker) trackedLocked() []int {
	out := make([]int, 0, len(t.crossed))
	for threshold := range t.crossed {
		out = append(out, threshold)
	}
	slices.Sort(out)
	return out
}

// Reset clears crossed thresholds and the max depth and restarts the page-view clock.
func (t *ScrollDepthTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.crossed = make(map[int]bool)
	t.depth = 0
	t.maxDepth = 0
	t.latest = ScrollObservation{}
	t.startedAt = t.clock.Now()
}

// Cleanup cancels the pending debounce; later scrolls are ignored.
func (t *ScrollDepthTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.closed = true
}
