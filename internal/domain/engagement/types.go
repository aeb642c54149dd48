// Package engagement implements the page engagement trackers (scroll depth,
// active time, section visibility, reading completion), the engagement score
// model and the per-page-view orchestrator that fuses them.
//
// Trackers never touch a DOM. Every browser observation is posted to the
// owning tracker as a message, and every detected event is forwarded to a
// Reporter. Nothing in this package returns an error into the host path.
package engagement

import "time"

// ContentType classifies the page and selects the score weight vector.
type ContentType string

const (
	ContentBlog      ContentType = "blog"
	ContentArticle   ContentType = "article"
	ContentLanding   ContentType = "landing"
	ContentService   ContentType = "service"
	ContentPortfolio ContentType = "portfolio"
	ContentContact   ContentType = "contact"
)

// ContentTypes lists every content type with a weight vector.
var ContentTypes = []ContentType{
	ContentBlog, ContentArticle, ContentLanding, ContentService, ContentPortfolio, ContentContact,
}

// ParseContentType maps a raw tag to a known content type, falling back to blog.
func ParseContentType(raw string) ContentType {
	for _, ct := range ContentTypes {
		if string(ct) == raw {
			return ct
		}
	}
	return ContentBlog
}

// Tier is an ordered engagement bucket derived from the overall score.
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very_high"
)

// Report event names.
const (
	EventScrollDepth         = "scroll_depth"
	EventEngagementPulse     = "engagement_pulse"
	EventEngagementPause     = "engagement_pause"
	EventEngagementResume    = "engagement_resume"
	EventContentVisible      = "content_visible"
	EventVisibilityMilestone = "content_visibility_milestone"
	EventReadingStarted      = "reading_started"
	EventReadingMilestone    = "reading_milestone"
	EventReadingCompleted    = "reading_completed"
	EventPageMetadata        = "page_metadata"
	EventEngagementMetrics   = "engagement_metrics"
	EventUserInteraction     = "user_interaction"
	EventMilestone           = "engagement_milestone"
)

// Observation is a browser-side fact posted to the orchestrator.
type Observation interface {
	observation()
}

// ScrollObservation carries the window scroll geometry at the time of a scroll event.
type ScrollObservation struct {
	ScrollY        float64
	ScrollHeight   float64
	ViewportHeight float64
}

// ActivityKind is a qualifying user-input event type.
type ActivityKind string

const (
	ActivityPointerDown ActivityKind = "pointerdown"
	ActivityKeyDown     ActivityKind = "keydown"
	ActivityScroll      ActivityKind = "scroll"
	ActivityTouchStart  ActivityKind = "touchstart"
)

// ActivityObservation records one qualifying input event.
type ActivityObservation struct {
	Kind ActivityKind
}

// IntersectionObservation is one intersection-observer entry for a tracked element.
// IsVisible is only set by clients supporting the visibility-aware observer.
type IntersectionObservation struct {
	ID             string
	IsIntersecting bool
	Ratio          float64
	IsVisible      *bool
}

// ElementObservation registers or deregisters a dynamically injected element.
type ElementObservation struct {
	ID      string
	Observe bool
}

// GeometryObservation reports the laid-out position of the content root.
type GeometryObservation struct {
	ContentTop    float64
	ContentHeight float64
}

// UnloadObservation signals the page is going away.
type UnloadObservation struct{}

func (ScrollObservation) observation()       {}
func (ActivityObservation) observation()     {}
func (IntersectionObservation) observation() {}
func (ElementObservation) observation()      {}
func (GeometryObservation) observation()     {}
func (UnloadObservation) observation()       {}

func elapsedMillis(from, to time.Time) int64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Milliseconds()
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
