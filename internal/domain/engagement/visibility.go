package engagement

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// VisibilityConfig configures the section visibility tracker.
type VisibilityConfig struct {
	// ObserverThresholds are handed to the client-side intersection observer.
	ObserverThresholds []float64
	// RootMargin shrinks the observed viewport so barely peeking elements do not count.
	RootMargin string
	// Milestones are the ratio checkpoints, in percent.
	Milestones []int
}

func DefaultVisibilityConfig() VisibilityConfig {
	return VisibilityConfig{
		ObserverThresholds: []float64{0, 0.25, 0.5, 0.75, 1},
		RootMargin:         "0px 0px -50px 0px",
		Milestones:         []int{25, 50, 75, 100},
	}
}

// Capabilities describes what the reporting client supports.
type Capabilities struct {
	// VisibilityV2 is set when the client observes with the visibility-aware
	// intersection API and fills IntersectionObservation.IsVisible.
	VisibilityV2 bool `json:"visibilityV2"`
}

// ObserverOptions is the configuration the client must apply to its observer.
type ObserverOptions struct {
	Thresholds []float64 `json:"thresholds"`
	RootMargin string    `json:"rootMargin"`
	TrackV2    bool      `json:"trackVisibility"`
}

// VisibilityRecord is the state of one tracked element.
type VisibilityRecord struct {
	ID                   string       `json:"id"`
	IsVisible            bool         `json:"isVisible"`
	IntersectionRatio    float64      `json:"intersectionRatio"`
	FirstVisibleReported bool         `json:"firstVisibleReported"`
	FirstVisibleAt       time.Time    `json:"firstVisibleAt,omitempty"`
	Milestones           map[int]bool `json:"milestones"`
}

// ContentVisibilityTracker reports when tagged sections first become visible
// and when they reach visibility ratio milestones.
type ContentVisibilityTracker struct {
	mu        sync.Mutex
	config    VisibilityConfig
	caps      Capabilities
	doc       Document
	clock     clock.Clock
	reporter  Reporter
	logger    *slog.Logger
	startedAt time.Time
	records   map[string]*VisibilityRecord
	closed    bool
}

func NewContentVisibilityTracker(config VisibilityConfig, caps Capabilities, doc Document, clk clock.Clock, reporter Reporter, logger *slog.Logger) *ContentVisibilityTracker {
	defaults := DefaultVisibilityConfig()
	if len(config.ObserverThresholds) == 0 {
		config.ObserverThresholds = defaults.ObserverThresholds
	}
	if config.RootMargin == "" {
		config.RootMargin = defaults.RootMargin
	}
	if len(config.Milestones) == 0 {
		config.Milestones = defaults.Milestones
	}
	milestones := slices.Clone(config.Milestones)
	slices.Sort(milestones)
	config.Milestones = slices.Compact(milestones)

	return &ContentVisibilityTracker{
		config:    config,
		caps:      caps,
		doc:       doc,
		clock:     clk,
		reporter:  reporter,
		logger:    loggerOrDiscard(logger),
		startedAt: clk.Now(),
		records:   make(map[string]*VisibilityRecord),
	}
}

// ObserverOptions returns the observer configuration for the client.
func (t *ContentVisibilityTracker) ObserverOptions() ObserverOptions {
	return ObserverOptions{
		Thresholds: slices.Clone(t.config.ObserverThresholds),
		RootMargin: t.config.RootMargin,
		TrackV2:    t.caps.VisibilityV2,
	}
}

// Init starts observing every element the document tags for visibility tracking.
func (t *ContentVisibilityTracker) Init() {
	if t.doc == nil {
		t.logger.Warn("No document available; visibility tracking disabled")
		return
	}
	ids := t.doc.TrackedElements()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, id := range ids {
		t.observeLocked(id)
	}
	t.logger.Debug("Visibility tracking initialized", "elements", len(t.records), "visibilityV2", t.caps.VisibilityV2)
}

// ObserveElement registers an element injected after Init.
func (t *ContentVisibilityTracker) ObserveElement(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.observeLocked(id)
}

func (t *ContentVisibilityTracker) observeLocked(id string) {
	if id == "" {
		return
	}
	if _, ok := t.records[id]; ok {
		return
	}
	t.records[id] = &VisibilityRecord{ID: id, Milestones: make(map[int]bool)}
}

// UnobserveElement drops the element and its record.
func (t *ContentVisibilityTracker) UnobserveElement(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

// HandleIntersection applies one observer entry. Entries for unknown ids are ignored.
func (t *ContentVisibilityTracker) HandleIntersection(obs IntersectionObservation) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	rec, ok := t.records[obs.ID]
	if !ok {
		t.mu.Unlock()
		return
	}

	ratio := obs.Ratio
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	visible := obs.IsIntersecting && ratio > 0
	if t.caps.VisibilityV2 && obs.IsVisible != nil {
		visible = obs.IsIntersecting && *obs.IsVisible
	}
	rec.IsVisible = visible
	rec.IntersectionRatio = ratio

	now := t.clock.Now()
	var reports []pendingReport
	if visible && !rec.FirstVisibleReported {
		rec.FirstVisibleReported = true
		rec.FirstVisibleAt = now
		reports = append(reports, pendingReport{
			event: EventContentVisible,
			props: Properties{
				"element_id":         rec.ID,
				"intersection_ratio": ratio,
				"time_to_visible_ms": elapsedMillis(t.startedAt, now),
			},
		})
		t.logger.Debug("Element visible", "elementId", rec.ID, "ratio", ratio)
	}

	if obs.IsIntersecting {
		reached := int(math.Round(ratio * 100))
		for _, m := range t.config.Milestones {
			if rec.Milestones[m] || reached < m {
				continue
			}
			rec.Milestones[m] = true
			reports = append(reports, pendingReport{
				event: EventVisibilityMilestone,
				props: Properties{
					"element_id":           rec.ID,
					"milestone":            m,
					"time_to_milestone_ms": elapsedMillis(t.startedAt, now),
				},
			})
		}
	}
	t.mu.Unlock()

	emitAll(t.reporter, reports)
}

// VisibilityData returns a copy of every record.
func (t *ContentVisibilityTracker) VisibilityData() map[string]VisibilityRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]VisibilityRecord, len(t.records))
	for id, rec := range t.records {
		cp := *rec
		cp.Milestones = maps.Clone(rec.Milestones)
		out[id] = cp
	}
	return out
}

func (t *ContentVisibilityTracker) IsElementVisible(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	return ok && rec.IsVisible
}

func (t *ContentVisibilityTracker) VisibilityRatio(id string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[id]; ok {
		return rec.IntersectionRatio
	}
	return 0
}

// VisibleElementCount counts elements currently visible.
func (t *ContentVisibilityTracker) VisibleElementCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.records {
		if rec.IsVisible {
			n++
		}
	}
	return n
}

// SeenElementCount counts elements that have been visible at least once.
func (t *ContentVisibilityTracker) SeenElementCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.records {
		if rec.FirstVisibleReported {
			n++
		}
	}
	return n
}

// Cleanup disconnects the tracker and clears every record.
func (t *ContentVisibilityTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]*VisibilityRecord)
	t.closed = true
}
