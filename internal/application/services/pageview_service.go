// Package services provides application-level orchestration services
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/caching/stores"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/document"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/messaging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/performance"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/reporting"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/security"
)

// ViewportPayload is the window geometry reported at page view creation.
type ViewportPayload struct {
	ScrollY      float64 `json:"scrollY"`
	ScrollHeight float64 `json:"scrollHeight"`
	Height       float64 `json:"height"`
}

// RectPayload is the laid-out extent of the content root.
type RectPayload struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// CreatePageViewRequest registers a page load.
type CreatePageViewRequest struct {
	Path               string                  `json:"path"`
	ContentType        string                  `json:"contentType"`
	PageTitle          string                  `json:"pageTitle"`
	HTML               string                  `json:"html"`
	TrackingIntervalMs int64                   `json:"trackingIntervalMs"`
	EnableDebug        bool                    `json:"enableDebug"`
	VisitorSession     string                  `json:"visitorSession"`
	Capabilities       engagement.Capabilities `json:"capabilities"`
	Viewport           *ViewportPayload        `json:"viewport"`
	Content            *RectPayload            `json:"content"`
}

// CreatePageViewResult is handed back to the beacon.
type CreatePageViewResult struct {
	PageViewID      string                     `json:"pageViewId"`
	Token           string                     `json:"token"`
	ObserverOptions engagement.ObserverOptions `json:"observerOptions"`
	TrackedElements []string                   `json:"trackedElements"`
}

// InteractionRequest is a discrete business event on the page.
type InteractionRequest struct {
	Type       string         `json:"type" binding:"required"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

// MilestoneRequest is a secondary engagement milestone.
type MilestoneRequest struct {
	Type  string `json:"type" binding:"required"`
	Label string `json:"label"`
}

// MetricsResult is the synchronous snapshot of a page view.
type MetricsResult struct {
	PageViewID string             `json:"pageViewId"`
	Metrics    engagement.Metrics `json:"metrics"`
	Insights   []string           `json:"insights"`
	Reports    map[string]int64   `json:"reports"`
}

// ServiceStats summarizes the collector for the health endpoint.
type ServiceStats struct {
	LivePageViews int                          `json:"livePageViews"`
	Operations    []performance.OperationStats `json:"operations"`
	Runtime       map[string]any               `json:"runtime"`
}

// PageViewService owns the lifecycle of tracked page views.
type PageViewService struct {
	store       *stores.PageViewStore
	broadcaster messaging.Broadcaster
	flags       engagement.FlagStore
	settings    TrackingSettings
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
}

// NewPageViewService wires the service. A nil flag store keeps flags in memory.
func NewPageViewService(
	store *stores.PageViewStore,
	broadcaster messaging.Broadcaster,
	flags engagement.FlagStore,
	settings TrackingSettings,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *PageViewService {
	if flags == nil {
		flags = engagement.NewMemoryFlags()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if perf == nil {
		perf = performance.NewTracker(0, logger.System())
	}
	return &PageViewService{
		store:       store,
		broadcaster: broadcaster,
		flags:       flags,
		settings:    settings,
		clock:       clk,
		logger:      logger,
		perf:        perf,
	}
}

// Create parses the page, starts its orchestrator and issues the beacon token.
func (s *PageViewService) Create(req CreatePageViewRequest) (*CreatePageViewResult, error) {
	marker := s.perf.StartOperation("create", "")
	defer marker.Complete()

	page, err := document.Parse(req.HTML)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if req.Viewport != nil {
		page.SetViewport(engagement.Viewport{
			ScrollY:      req.Viewport.ScrollY,
			ScrollHeight: req.Viewport.ScrollHeight,
			Height:       req.Viewport.Height,
		})
	}
	if req.Content != nil {
		page.SetContentRect(engagement.Rect{Top: req.Content.Top, Height: req.Content.Height})
	}

	id := security.GenerateULID()
	marker.PageView = id
	token, err := security.GeneratePageViewToken(id, s.settings.JWTSecret, s.clock.Now(), s.settings.TokenTTL)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	counter := reporting.NewCounter()
	sinks := reporting.Fanout{
		reporting.NewLogSink(s.logger.WithPageView(logging.ChannelSink, id)),
		counter,
	}
	if req.EnableDebug {
		sinks = append(sinks, reporting.NewBroadcastSink(s.broadcaster, id, s.clock.Now))
	}

	// Milestone flags survive reloads within one visitor session.
	prefix := id + ":"
	if req.VisitorSession != "" {
		prefix = req.VisitorSession + ":"
	}
	readingCfg := s.settings.Reading
	readingCfg.PageKey = req.Path

	integration := engagement.NewIntegration(engagement.Options{
		Clock:        s.clock,
		Reporter:     sinks,
		Document:     page,
		Flags:        engagement.PrefixedFlags{Store: s.flags, Prefix: prefix},
		Logger:       s.logger.WithPageView(logging.ChannelTracking, id),
		Capabilities: req.Capabilities,
		Scroll:       s.settings.Scroll,
		Time:         s.settings.Time,
		Visibility:   s.settings.Visibility,
		Reading:      readingCfg,
	})

	pv := &stores.PageView{
		ID:             id,
		Path:           req.Path,
		VisitorSession: req.VisitorSession,
		Debug:          req.EnableDebug,
		Integration:    integration,
		Page:           page,
		Counter:        counter,
	}
	s.store.Put(pv)

	interval := s.settings.TrackingInterval
	if req.TrackingIntervalMs > 0 {
		interval = time.Duration(req.TrackingIntervalMs) * time.Millisecond
	}
	title := req.PageTitle
	if title == "" {
		title = page.Title()
	}
	integration.InitializePageTracking(engagement.PageConfig{
		ContentType:      engagement.ParseContentType(req.ContentType),
		PageTitle:        title,
		TrackingInterval: interval,
		EnableDebug:      req.EnableDebug,
	})

	s.logger.Analytics().Info("Page view created", "pageViewId", id, "path", req.Path, "contentType", req.ContentType)
	return &CreatePageViewResult{
		PageViewID:      id,
		Token:           token,
		ObserverOptions: integration.ObserverOptions(),
		TrackedElements: page.TrackedElements(),
	}, nil
}

// Authorize checks that the page view is live and the token belongs to it.
func (s *PageViewService) Authorize(id, token string) error {
	if _, ok := s.store.Get(id); !ok {
		return ErrPageViewNotFound
	}
	return security.ValidatePageViewToken(token, id, s.settings.JWTSecret, s.clock.Now())
}

// Observe dispatches a batch in order. Nothing is dispatched if any payload
// is malformed. An unload ends the page view and drops what follows it.
func (s *PageViewService) Observe(id string, payloads []ObservationPayload) (int, error) {
	marker := s.perf.StartOperation("observe", id)
	defer marker.Complete()

	pv, ok := s.store.Touch(id)
	if !ok {
		marker.SetError(ErrPageViewNotFound)
		return 0, ErrPageViewNotFound
	}
	batch := make([]engagement.Observation, 0, len(payloads))
	for i, p := range payloads {
		obs, err := p.ToObservation()
		if err != nil {
			marker.SetError(err)
			return 0, fmt.Errorf("observation %d: %w", i, err)
		}
		batch = append(batch, obs)
	}

	for i, obs := range batch {
		switch o := obs.(type) {
		case engagement.ScrollObservation:
			pv.Page.SetViewport(engagement.Viewport{ScrollY: o.ScrollY, ScrollHeight: o.ScrollHeight, Height: o.ViewportHeight})
		case engagement.GeometryObservation:
			pv.Page.SetContentRect(engagement.Rect{Top: o.ContentTop, Height: o.ContentHeight})
		case engagement.UnloadObservation:
			s.end(id, true)
			return i + 1, nil
		}
		pv.Integration.Dispatch(obs)
	}
	return len(batch), nil
}

// TrackInteraction records a business event on the page view.
func (s *PageViewService) TrackInteraction(id string, req InteractionRequest) error {
	pv, ok := s.store.Touch(id)
	if !ok {
		return ErrPageViewNotFound
	}
	pv.Integration.TrackInteraction(req.Type, req.Label, req.Properties)
	return nil
}

// TrackMilestone records a secondary milestone on the page view.
func (s *PageViewService) TrackMilestone(id string, req MilestoneRequest) error {
	pv, ok := s.store.Touch(id)
	if !ok {
		return ErrPageViewNotFound
	}
	pv.Integration.TrackMilestone(req.Type, req.Label)
	return nil
}

// Metrics returns the current snapshot, insights and report counts.
func (s *PageViewService) Metrics(id string) (*MetricsResult, error) {
	marker := s.perf.StartOperation("metrics", id)
	defer marker.Complete()

	pv, ok := s.store.Touch(id)
	if !ok {
		marker.SetError(ErrPageViewNotFound)
		return nil, ErrPageViewNotFound
	}
	m := pv.Integration.CurrentMetrics()
	return &MetricsResult{
		PageViewID: id,
		Metrics:    m,
		Insights:   engagement.InsightsFor(m),
		Reports:    pv.Counter.Snapshot(),
	}, nil
}

// Delete stops tracking without a final flush, as on a client-side route change.
func (s *PageViewService) Delete(id string) error {
	if !s.end(id, false) {
		return ErrPageViewNotFound
	}
	return nil
}

// Score runs the stateless engagement model.
func (s *PageViewService) Score(f engagement.Factors) engagement.ScoreResult {
	f.ContentType = engagement.ParseContentType(string(f.ContentType))
	return engagement.CalculateEngagementScore(f)
}

// Subscribe opens a live report stream for a debug-enabled page view.
func (s *PageViewService) Subscribe(id string) (chan messaging.Message, error) {
	pv, ok := s.store.Touch(id)
	if !ok {
		return nil, ErrPageViewNotFound
	}
	if !pv.Debug {
		return nil, ErrStreamDisabled
	}
	return s.broadcaster.Subscribe(id), nil
}

// Unsubscribe releases a stream opened with Subscribe.
func (s *PageViewService) Unsubscribe(id string, ch chan messaging.Message) {
	s.broadcaster.Unsubscribe(id, ch)
}

// Broadcaster exposes the report broadcaster to stream transports.
func (s *PageViewService) Broadcaster() messaging.Broadcaster {
	return s.broadcaster
}

// ExpireIdle unloads page views idle for longer than ttl.
func (s *PageViewService) ExpireIdle(ttl time.Duration) []string {
	idle := s.store.RemoveIdle(ttl)
	ids := make([]string, 0, len(idle))
	for _, pv := range idle {
		s.finish(pv, true)
		ids = append(ids, pv.ID)
	}
	return ids
}

// CloseStreams ends every open debug stream so the HTTP server can drain.
func (s *PageViewService) CloseStreams() int {
	return s.broadcaster.CloseAll()
}

// Shutdown unloads every live page view so each gets its final flush.
func (s *PageViewService) Shutdown() int {
	all := s.store.RemoveAll()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, pv := range all {
		s.finish(pv, true)
	}
	return len(all)
}

// Stats summarizes the service for health checks.
func (s *PageViewService) Stats() ServiceStats {
	return ServiceStats{
		LivePageViews: s.store.Len(),
		Operations:    s.perf.Stats(),
		Runtime:       s.perf.GetOverallStats(),
	}
}

func (s *PageViewService) end(id string, unload bool) bool {
	pv, ok := s.store.Remove(id)
	if !ok {
		return false
	}
	s.finish(pv, unload)
	return true
}

func (s *PageViewService) finish(pv *stores.PageView, unload bool) {
	if unload {
		pv.Integration.Unload()
	} else {
		pv.Integration.Cleanup()
	}
	s.broadcaster.Close(pv.ID)
	s.logger.Analytics().Info("Page view ended", "pageViewId", pv.ID, "unload", unload, "reports", pv.Counter.Snapshot())
}

// IsClientError reports whether err stems from the request rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownObservation) || errors.Is(err, ErrStreamDisabled)
}
