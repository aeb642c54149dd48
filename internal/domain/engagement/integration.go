package engagement

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// DefaultTrackingInterval is the period of the composite metrics report.
const DefaultTrackingInterval = 30 * time.Second

// PageConfig describes one page view.
type PageConfig struct {
	ContentType      ContentType
	PageTitle        string
	TrackingInterval time.Duration
	EnableDebug      bool
}

// Options wires an Integration to its collaborators.
type Options struct {
	Clock        clock.Clock
	Reporter     Reporter
	Document     Document
	Flags        FlagStore
	Logger       *slog.Logger
	Capabilities Capabilities
	Scroll       ScrollConfig
	Time         TimeConfig
	Visibility   VisibilityConfig
	Reading      ReadingConfig
}

// Metrics is the synchronous snapshot of a page view.
type Metrics struct {
	Initialized          bool        `json:"initialized"`
	ContentType          ContentType `json:"contentType"`
	PageTitle            string      `json:"pageTitle"`
	ScrollDepth          int         `json:"scrollDepth"`
	CrossedThresholds    []int       `json:"crossedThresholds"`
	TimeOnPageSeconds    int         `json:"timeOnPageSeconds"`
	EngagedTimeSeconds   int         `json:"engagedTimeSeconds"`
	EngagementPercentage int         `json:"engagementPercentage"`
	IsActive             bool        `json:"isActive"`
	ReadingProgress      int         `json:"readingProgress"`
	ReadingCompleted     bool        `json:"readingCompleted"`
	WordCount            int         `json:"wordCount"`
	VisibleSections      int         `json:"visibleSections"`
	SectionsSeen         int         `json:"sectionsSeen"`
	Interactions         int         `json:"interactions"`
	Score                ScoreResult `json:"score"`
}

// Factors returns the score inputs carried by the snapshot.
func (m Metrics) Factors() Factors {
	return Factors{
		ScrollDepthPercent:     m.ScrollDepth,
		TimeOnPageSeconds:      float64(m.TimeOnPageSeconds),
		ReadingProgressPercent: m.ReadingProgress,
		VisibleSectionCount:    m.SectionsSeen,
		InteractionCount:       m.Interactions,
		ContentType:            m.ContentType,
	}
}

// Integration composes the four trackers for one page view, runs the
// periodic scoring loop and exposes the interaction hooks.
type Integration struct {
	mu           sync.Mutex
	opts         Options
	logger       *slog.Logger
	initialized  bool
	page         PageConfig
	scroll       *ScrollDepthTracker
	time         *TimeEngagementTracker
	visibility   *ContentVisibilityTracker
	reading      *ReadingCompletionTracker
	interactions int
	loop         clock.Timer
}

func NewIntegration(opts Options) *Integration {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Flags == nil {
		opts.Flags = NewMemoryFlags()
	}
	return &Integration{
		opts:   opts,
		logger: loggerOrDiscard(opts.Logger),
	}
}

// InitializePageTracking starts tracking a page view. A second call while
// tracking is active only logs a warning.
func (i *Integration) InitializePageTracking(cfg PageConfig) {
	i.mu.Lock()
	if i.initialized {
		i.mu.Unlock()
		i.logger.Warn("Page tracking already initialized", "pageTitle", cfg.PageTitle)
		return
	}
	cfg.ContentType = ParseContentType(string(cfg.ContentType))
	if cfg.TrackingInterval <= 0 {
		cfg.TrackingInterval = DefaultTrackingInterval
	}

	trackerLogger := discardLogger()
	if cfg.EnableDebug {
		trackerLogger = i.logger
	}
	clk, rep := i.opts.Clock, i.opts.Reporter

	i.page = cfg
	i.interactions = 0
	i.scroll = NewScrollDepthTracker(i.opts.Scroll, clk, rep, trackerLogger)
	i.time = NewTimeEngagementTracker(i.opts.Time, clk, rep, trackerLogger)
	i.visibility = NewContentVisibilityTracker(i.opts.Visibility, i.opts.Capabilities, i.opts.Document, clk, rep, trackerLogger)
	i.reading = NewReadingCompletionTracker(i.opts.Reading, i.opts.Document, i.opts.Flags, clk, rep, trackerLogger)
	i.initialized = true
	visibility, reading, timeTracker := i.visibility, i.reading, i.time
	i.mu.Unlock()

	timeTracker.Start()
	visibility.Init()
	reading.Init()

	rm := reading.ReadingMetrics()
	emit(i.opts.Reporter, EventPageMetadata, Properties{
		"word_count":                rm.TotalWords,
		"estimated_reading_minutes": rm.EstimatedMinutes,
		"content_type":              string(cfg.ContentType),
		"page_title":                cfg.PageTitle,
		"tracked_sections":          len(visibility.VisibilityData()),
	})

	i.mu.Lock()
	if i.initialized && i.reading == reading && i.loop == nil {
		i.loop = clk.Every(cfg.TrackingInterval, func() { i.tick(reading) })
	}
	i.mu.Unlock()

	i.logger.Info("Page tracking initialized", "contentType", cfg.ContentType, "pageTitle", cfg.PageTitle, "interval", cfg.TrackingInterval)
}

// IsInitialized reports whether a page view is being tracked.
func (i *Integration) IsInitialized() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.initialized
}

func (i *Integration) tick(generation *ReadingCompletionTracker) {
	i.mu.Lock()
	current := i.initialized && i.reading == generation
	i.mu.Unlock()
	if !current {
		return
	}
	i.flush()
}

func (i *Integration) flush() {
	m := i.CurrentMetrics()
	if !m.Initialized {
		return
	}
	emit(i.opts.Reporter, EventEngagementMetrics, Properties{
		"content_type":           string(m.ContentType),
		"scroll_depth":           m.ScrollDepth,
		"time_on_page_s":         m.TimeOnPageSeconds,
		"engaged_time_s":         m.EngagedTimeSeconds,
		"engagement_percentage":  m.EngagementPercentage,
		"is_active":              m.IsActive,
		"reading_progress":       m.ReadingProgress,
		"reading_completed":      m.ReadingCompleted,
		"visible_sections":       m.VisibleSections,
		"sections_seen":          m.SectionsSeen,
		"interaction_count":      m.Interactions,
		"engagement_score":       m.Score.OverallScore,
		"engagement_tier":        string(m.Score.Tier),
		"conversion_probability": math.Round(m.Score.ConversionProbability*1000) / 1000,
		"signals":                m.Score.Signals,
	})
}

// Unload performs the final metrics flush of the page view, then cleans up.
func (i *Integration) Unload() {
	if !i.IsInitialized() {
		return
	}
	i.flush()
	i.Cleanup()
}

// Dispatch routes one client observation to its owning tracker.
func (i *Integration) Dispatch(obs Observation) {
	i.mu.Lock()
	if !i.initialized {
		i.mu.Unlock()
		return
	}
	scroll, timeTracker, visibility, reading := i.scroll, i.time, i.visibility, i.reading
	i.mu.Unlock()

	switch o := obs.(type) {
	case ScrollObservation:
		scroll.HandleScroll(o)
		reading.HandleScroll(o)
		timeTracker.HandleActivity(ActivityObservation{Kind: ActivityScroll})
	case ActivityObservation:
		timeTracker.HandleActivity(o)
	case IntersectionObservation:
		visibility.HandleIntersection(o)
	case ElementObservation:
		if o.Observe {
			visibility.ObserveElement(o.ID)
		} else {
			visibility.UnobserveElement(o.ID)
		}
	case GeometryObservation:
		reading.UpdateGeometry(o)
	case UnloadObservation:
		i.Unload()
	}
}

// TrackInteraction reports a discrete business event with the current scroll
// depth and reading progress attached.
func (i *Integration) TrackInteraction(kind, label string, extra Properties) {
	i.mu.Lock()
	scrollDepth, readingProgress := 0, 0
	if i.initialized {
		i.interactions++
		scrollDepth = i.scroll.ScrollDepthData().DepthPercent
		readingProgress = i.reading.Progress()
	}
	count := i.interactions
	i.mu.Unlock()

	props := Properties{}
	for k, v := range extra {
		props[k] = v
	}
	props["interaction_type"] = kind
	if label != "" {
		props["label"] = label
	}
	props["scroll_depth"] = scrollDepth
	props["reading_progress"] = readingProgress
	props["interaction_count"] = count
	emit(i.opts.Reporter, EventUserInteraction, props)
}

// TrackMilestone reports a secondary engagement event.
func (i *Integration) TrackMilestone(kind, label string) {
	i.mu.Lock()
	timeOnPage := 0
	if i.initialized {
		timeOnPage = i.time.TimeOnPageSeconds()
	}
	i.mu.Unlock()

	props := Properties{
		"milestone_type": kind,
		"time_on_page_s": timeOnPage,
	}
	if label != "" {
		props["label"] = label
	}
	emit(i.opts.Reporter, EventMilestone, props)
}

// CurrentMetrics gathers a snapshot from every tracker and scores it.
func (i *Integration) CurrentMetrics() Metrics {
	i.mu.Lock()
	if !i.initialized {
		i.mu.Unlock()
		return Metrics{Score: CalculateEngagementScore(Factors{ContentType: ContentBlog})}
	}
	page, interactions := i.page, i.interactions
	scroll, timeTracker, visibility, reading := i.scroll, i.time, i.visibility, i.reading
	i.mu.Unlock()

	sd := scroll.ScrollDepthData()
	ed := timeTracker.EngagementData()
	rm := reading.ReadingMetrics()
	m := Metrics{
		Initialized:          true,
		ContentType:          page.ContentType,
		PageTitle:            page.PageTitle,
		ScrollDepth:          sd.MaxDepthPercent,
		CrossedThresholds:    sd.CrossedThresholds,
		TimeOnPageSeconds:    int(ed.TimeOnPageMs / 1000),
		EngagedTimeSeconds:   int(ed.EngagedTimeMs / 1000),
		EngagementPercentage: ed.EngagementPercent,
		IsActive:             ed.IsActive,
		ReadingProgress:      rm.ProgressPercent,
		ReadingCompleted:     rm.Completed,
		WordCount:            rm.TotalWords,
		VisibleSections:      visibility.VisibleElementCount(),
		SectionsSeen:         visibility.SeenElementCount(),
		Interactions:         interactions,
	}
	m.Score = CalculateEngagementScore(m.Factors())
	return m
}

// Insights returns short human-readable observations for debug overlays.
func (i *Integration) Insights() []string {
	return InsightsFor(i.CurrentMetrics())
}

// InsightsFor derives the insight strings with the same cutoffs as the score signals.
func InsightsFor(m Metrics) []string {
	var out []string
	switch {
	case m.ScrollDepth >= 75:
		out = append(out, fmt.Sprintf("Deep scroll: reached %d%% of the page", m.ScrollDepth))
	case m.ScrollDepth < 25:
		out = append(out, "Shallow scroll: most of the page was not seen")
	}
	if m.TimeOnPageSeconds >= 300 {
		out = append(out, fmt.Sprintf("Extended visit: %d minutes on page", m.TimeOnPageSeconds/60))
	}
	if m.ReadingProgress >= 75 {
		out = append(out, fmt.Sprintf("High completion: %d%% of the content read", m.ReadingProgress))
	}
	switch {
	case m.Interactions >= 3:
		out = append(out, fmt.Sprintf("Heavy interaction: %d interactions", m.Interactions))
	case m.Interactions >= 1:
		out = append(out, "Clicked a call to action")
	}
	switch {
	case m.SectionsSeen >= 4:
		out = append(out, fmt.Sprintf("Explored content: %d sections seen", m.SectionsSeen))
	case m.SectionsSeen >= 2:
		out = append(out, fmt.Sprintf("Browsed content: %d sections seen", m.SectionsSeen))
	}
	out = append(out, fmt.Sprintf("Engagement %s (score %d, conversion %.0f%%)",
		m.Score.Tier, m.Score.OverallScore, m.Score.ConversionProbability*100))
	return out
}

// ObserverOptions returns the intersection observer settings for the client.
func (i *Integration) ObserverOptions() ObserverOptions {
	i.mu.Lock()
	visibility := i.visibility
	i.mu.Unlock()
	if visibility == nil {
		return NewContentVisibilityTracker(i.opts.Visibility, i.opts.Capabilities, nil, i.opts.Clock, nil, nil).ObserverOptions()
	}
	return visibility.ObserverOptions()
}

// Cleanup stops the loop and every tracker timer. It is safe to call repeatedly.
func (i *Integration) Cleanup() {
	i.mu.Lock()
	if !i.initialized {
		i.mu.Unlock()
		return
	}
	if i.loop != nil {
		i.loop.Stop()
		i.loop = nil
	}
	scroll, timeTracker, visibility, reading := i.scroll, i.time, i.visibility, i.reading
	title := i.page.PageTitle
	i.initialized = false
	i.mu.Unlock()

	scroll.Cleanup()
	timeTracker.Cleanup()
	visibility.Cleanup()
	reading.Cleanup()
	i.logger.Debug("Page tracking cleaned up", "pageTitle", title)
}
