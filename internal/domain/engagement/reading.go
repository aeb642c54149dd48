package engagement

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// Reading speeds in words per minute. Only NormalWPM drives the estimate.
const (
	NormalWPM   = 200
	SkimmingWPM = 300
	CarefulWPM  = 100
)

const milestoneKey = "reading_milestone_%s_%d"

// Reading styles derived from the observed speed.
const (
	StyleSkimming = "skimming"
	StyleNormal   = "normal"
	StyleCareful  = "careful"
)

// ReadingConfig configures the reading completion tracker.
type ReadingConfig struct {
	// Selectors is the prioritized content-root lookup.
	Selectors []string
	// CheckInterval is the minimum time between progress recomputations. Default 5s.
	CheckInterval time.Duration
	// Milestones are the progress checkpoints, in percent. 100 marks completion.
	Milestones []int
	// PageKey namespaces the durable milestone flags, usually the page path.
	PageKey string
}

func DefaultReadingConfig() ReadingConfig {
	return ReadingConfig{
		Selectors:     DefaultContentSelectors,
		CheckInterval: 5 * time.Second,
		Milestones:    []int{25, 50, 75, 100},
	}
}

// ReadingMetrics is a snapshot of the reading tracker.
type ReadingMetrics struct {
	Enabled               bool      `json:"enabled"`
	TotalWords            int       `json:"totalWords"`
	TotalCharacters       int       `json:"totalCharacters"`
	EstimatedMinutes      int       `json:"estimatedMinutes"`
	ProgressPercent       int       `json:"progressPercent"`
	ActualWordsRead       int       `json:"actualWordsRead"`
	ObservedWPM           float64   `json:"observedWpm"`
	ReadingStyle          string    `json:"readingStyle,omitempty"`
	CompletionProbability float64   `json:"completionProbability"`
	Started               bool      `json:"started"`
	StartedAt             time.Time `json:"startedAt,omitempty"`
	Completed             bool      `json:"completed"`
	CompletedAt           time.Time `json:"completedAt,omitempty"`
}

// ReadingCompletionTracker measures how far the reader got through the content root.
type ReadingCompletionTracker struct {
	mu          sync.Mutex
	config      ReadingConfig
	doc         Document
	flags       FlagStore
	clock       clock.Clock
	reporter    Reporter
	logger      *slog.Logger
	enabled     bool
	closed      bool
	root        ContentRoot
	totalWords  int
	totalChars  int
	started     bool
	startedAt   time.Time
	completedAt time.Time
	lastChecked time.Time
	progress    int
	reached     map[int]bool
}

func NewReadingCompletionTracker(config ReadingConfig, doc Document, flags FlagStore, clk clock.Clock, reporter Reporter, logger *slog.Logger) *ReadingCompletionTracker {
	defaults := DefaultReadingConfig()
	if len(config.Selectors) == 0 {
		config.Selectors = defaults.Selectors
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if len(config.Milestones) == 0 {
		config.Milestones = defaults.Milestones
	}
	milestones := slices.Clone(config.Milestones)
	slices.Sort(milestones)
	config.Milestones = slices.Compact(milestones)
	if flags == nil {
		flags = NewMemoryFlags()
	}
	return &ReadingCompletionTracker{
		config:   config,
		doc:      doc,
		flags:    flags,
		clock:    clk,
		reporter: reporter,
		logger:   loggerOrDiscard(logger),
		reached:  make(map[int]bool),
	}
}

// Init binds the tracker to the content root. Without one the tracker stays disabled.
func (t *ReadingCompletionTracker) Init() {
	if t.doc == nil {
		t.logger.Warn("No document available; reading tracking disabled")
		return
	}
	root, ok := t.doc.QueryContentRoot(t.config.Selectors)
	if !ok {
		t.logger.Warn("Content root not found; reading tracking disabled", "selectors", t.config.Selectors)
		return
	}
	viewport := t.doc.Viewport()

	t.mu.Lock()
	if t.closed || t.enabled {
		t.mu.Unlock()
		return
	}
	t.enabled = true
	t.root = root
	t.totalWords = len(strings.Fields(root.Text))
	t.totalChars = utf8.RuneCountInString(root.Text)
	t.logger.Debug("Reading tracking initialized", "selector", root.Selector, "words", t.totalWords)
	reports := t.checkStartLocked(viewport)
	t.mu.Unlock()

	emitAll(t.reporter, reports)
}

// EstimatedReadingMinutes is ceil(words / NormalWPM).
func EstimatedReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + NormalWPM - 1) / NormalWPM
}

// CompletionProbability is a fixed step function of reading progress.
func CompletionProbability(progress int) float64 {
	switch {
	case progress >= 100:
		return 1.0
	case progress >= 75:
		return 0.9
	case progress >= 50:
		return 0.7
	case progress >= 25:
		return 0.4
	default:
		return 0.1
	}
}

// ClassifyReadingSpeed buckets an observed words-per-minute value.
func ClassifyReadingSpeed(wpm float64) string {
	switch {
	case wpm >= SkimmingWPM:
		return StyleSkimming
	case wpm <= CarefulWPM:
		return StyleCareful
	default:
		return StyleNormal
	}
}

// ReadingProgress maps a scroll offset onto the content root, in percent.
func ReadingProgress(scrollY float64, root Rect) int {
	if root.Height <= 0 || math.IsNaN(scrollY) {
		return 0
	}
	return clampPercent(int(math.Round((scrollY - root.Top) / root.Height * 100)))
}

// UpdateGeometry replaces the content root position reported by the client.
func (t *ReadingCompletionTracker) UpdateGeometry(obs GeometryObservation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.closed {
		return
	}
	t.root.Rect = Rect{Top: obs.ContentTop, Height: obs.ContentHeight}
}

// HandleScroll runs the one-shot start check, then the throttled progress check.
func (t *ReadingCompletionTracker) HandleScroll(obs ScrollObservation) {
	t.mu.Lock()
	if !t.enabled || t.closed {
		t.mu.Unlock()
		return
	}

	var reports []pendingReport
	var crossed []milestoneCrossing
	if !t.started {
		reports = t.checkStartLocked(Viewport{
			ScrollY:      obs.ScrollY,
			ScrollHeight: obs.ScrollHeight,
			Height:       obs.ViewportHeight,
		})
	}
	if t.started {
		now := t.clock.Now()
		if t.lastChecked.IsZero() || now.Sub(t.lastChecked) >= t.config.CheckInterval {
			t.lastChecked = now
			crossed = t.updateProgressLocked(obs.ScrollY, now)
		}
	}
	t.mu.Unlock()

	emitAll(t.reporter, append(reports, t.resolveMilestones(crossed)...))
}

func (t *ReadingCompletionTracker) checkStartLocked(v Viewport) []pendingReport {
	if t.started || !t.root.Rect.Intersects(v) {
		return nil
	}
	t.started = true
	t.startedAt = t.clock.Now()
	t.logger.Debug("Reading started", "words", t.totalWords)
	return []pendingReport{{
		event: EventReadingStarted,
		props: Properties{
			"word_count":        t.totalWords,
			"estimated_minutes": EstimatedReadingMinutes(t.totalWords),
		},
	}}
}

// milestoneCrossing is a milestone reached by this tracker whose session flag
// is still unresolved.
type milestoneCrossing struct {
	key     string
	reports []pendingReport
}

func (t *ReadingCompletionTracker) updateProgressLocked(scrollY float64, now time.Time) []milestoneCrossing {
	progress := ReadingProgress(scrollY, t.root.Rect)
	if progress > t.progress {
		t.progress = progress
	}

	var crossed []milestoneCrossing
	for _, m := range t.config.Milestones {
		if t.reached[m] || t.progress < m {
			continue
		}
		t.reached[m] = true
		if m >= 100 && t.completedAt.IsZero() {
			t.completedAt = now
		}

		elapsed := now.Sub(t.startedAt)
		c := milestoneCrossing{key: fmt.Sprintf(milestoneKey, t.config.PageKey, m)}
		c.reports = append(c.reports, pendingReport{
			event: EventReadingMilestone,
			props: Properties{
				"milestone":     m,
				"word_count":    t.totalWords,
				"elapsed_s":     math.Round(elapsed.Seconds()),
				"words_read":    t.wordsReadLocked(),
				"reading_speed": math.Round(t.observedWPMLocked(now)),
			},
		})
		if m >= 100 {
			wpm := t.observedWPMLocked(now)
			c.reports = append(c.reports, pendingReport{
				event: EventReadingCompleted,
				props: Properties{
					"elapsed_s":         math.Round(elapsed.Seconds()),
					"estimated_minutes": EstimatedReadingMinutes(t.totalWords),
					"words_per_minute":  math.Round(wpm),
					"reading_style":     ClassifyReadingSpeed(wpm),
				},
			})
		}
		crossed = append(crossed, c)
	}
	return crossed
}

// resolveMilestones drops crossings already fired in this session and marks
// the rest. It runs without t.mu held since the flag store may be remote.
func (t *ReadingCompletionTracker) resolveMilestones(crossed []milestoneCrossing) []pendingReport {
	var reports []pendingReport
	for _, c := range crossed {
		if t.flags.Get(c.key) {
			continue
		}
		t.flags.Set(c.key, true)
		reports = append(reports, c.reports...)
	}
	if n := len(reports); n > 0 && reports[n-1].event == EventReadingCompleted {
		t.logger.Debug("Reading completed", "properties", map[string]any(reports[n-1].props))
	}
	return reports
}

func (t *ReadingCompletionTracker) wordsReadLocked() int {
	return int(math.Round(float64(t.totalWords) * float64(t.progress) / 100))
}

func (t *ReadingCompletionTracker) observedWPMLocked(now time.Time) float64 {
	if !t.started {
		return 0
	}
	end := now
	if !t.completedAt.IsZero() {
		end = t.completedAt
	}
	minutes := end.Sub(t.startedAt).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(t.wordsReadLocked()) / minutes
}

// Progress returns the furthest reading progress, in percent.
func (t *ReadingCompletionTracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// ReadingMetrics returns the current snapshot.
func (t *ReadingCompletionTracker) ReadingMetrics() ReadingMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	wpm := t.observedWPMLocked(now)
	m := ReadingMetrics{
		Enabled:               t.enabled,
		TotalWords:            t.totalWords,
		TotalCharacters:       t.totalChars,
		EstimatedMinutes:      EstimatedReadingMinutes(t.totalWords),
		ProgressPercent:       t.progress,
		ActualWordsRead:       t.wordsReadLocked(),
		ObservedWPM:           math.Round(wpm),
		CompletionProbability: CompletionProbability(t.progress),
		Started:               t.started,
		StartedAt:             t.startedAt,
		Completed:             !t.completedAt.IsZero(),
		CompletedAt:           t.completedAt,
	}
	if t.started && wpm > 0 {
		m.ReadingStyle = ClassifyReadingSpeed(wpm)
	}
	return m
}

// Cleanup disables the tracker; later scrolls are ignored.
func (t *ReadingCompletionTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}
