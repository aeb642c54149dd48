// Package stores provides the in-memory registry of live page views
package stores

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/document"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/reporting"
)

// PageView is one tracked page load and the orchestrator driving it.
type PageView struct {
	ID             string
	Path           string
	VisitorSession string
	Debug          bool
	Integration    *engagement.Integration
	Page           *document.Page
	Counter        *reporting.Counter
	CreatedAt      time.Time
	lastActivity   atomic.Int64
}

// LastActivity returns the time of the most recent request for the page view.
func (pv *PageView) LastActivity() time.Time {
	return time.Unix(0, pv.lastActivity.Load()).UTC()
}

func (pv *PageView) touch(t time.Time) {
	pv.lastActivity.Store(t.UnixNano())
}

// PageViewStore keeps live page views keyed by id.
type PageViewStore struct {
	pageViews map[string]*PageView
	mu        sync.RWMutex
	now       func() time.Time
	logger    *logging.ChanneledLogger
}

// NewPageViewStore creates an empty registry.
func NewPageViewStore(now func() time.Time, logger *logging.ChanneledLogger) *PageViewStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PageViewStore{
		pageViews: make(map[string]*PageView),
		now:       now,
		logger:    logger,
	}
}

// Put registers a page view and stamps its activity.
func (s *PageViewStore) Put(pv *PageView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now()
	if pv.CreatedAt.IsZero() {
		pv.CreatedAt = stamp
	}
	pv.touch(stamp)
	s.pageViews[pv.ID] = pv
	s.logger.Analytics().Debug("Page view registered", "pageViewId", pv.ID, "live", len(s.pageViews))
}

// Get returns a page view without touching it.
func (s *PageViewStore) Get(id string) (*PageView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pv, ok := s.pageViews[id]
	return pv, ok
}

// Touch returns a page view and marks it active.
func (s *PageViewStore) Touch(id string) (*PageView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pv, ok := s.pageViews[id]
	if ok {
		pv.touch(s.now())
	}
	return pv, ok
}

// Remove deletes a page view and returns it.
func (s *PageViewStore) Remove(id string) (*PageView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pv, ok := s.pageViews[id]
	if ok {
		delete(s.pageViews, id)
	}
	return pv, ok
}

// RemoveIdle removes and returns every page view idle for longer than ttl.
func (s *PageViewStore) RemoveIdle(ttl time.Duration) []*PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ttl)
	var idle []*PageView
	for id, pv := range s.pageViews {
		if pv.LastActivity().Before(cutoff) {
			idle = append(idle, pv)
			delete(s.pageViews, id)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].ID < idle[j].ID })
	return idle
}

// RemoveAll empties the registry, returning what it held.
func (s *PageViewStore) RemoveAll() []*PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*PageView, 0, len(s.pageViews))
	for _, pv := range s.pageViews {
		all = append(all, pv)
	}
	s.pageViews = make(map[string]*PageView)
	return all
}

// Len returns the number of live page views.
func (s *PageViewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pageViews)
}
