// Package messaging provides the concrete implementation of the report broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

const subscriberBuffer = 64

// Message is one reported event as delivered to a live stream.
type Message struct {
	Event      string         `json:"event"`
	PageViewID string         `json:"pageViewId"`
	Properties map[string]any `json:"properties"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SSE renders the message as a server-sent event frame.
func (m Message) SSE() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s message: %w", m.Event, err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", m.Event, data), nil
}

// ReportBroadcaster manages page-view scoped subscriber channels.
type ReportBroadcaster struct {
	pageViews map[string][]chan Message // pageViewId -> subscribers
	mu        sync.Mutex
	logger    *logging.ChanneledLogger
}

// NewReportBroadcaster creates a broadcaster.
func NewReportBroadcaster(logger *logging.ChanneledLogger) *ReportBroadcaster {
	return &ReportBroadcaster{
		pageViews: make(map[string][]chan Message),
		logger:    logger,
	}
}

// Subscribe registers a new stream client for a page view.
func (b *ReportBroadcaster) Subscribe(pageViewID string) chan Message {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	b.pageViews[pageViewID] = append(b.pageViews[pageViewID], ch)
	count := len(b.pageViews[pageViewID])
	b.mu.Unlock()

	b.logger.HTTP().Debug("Stream client registered", "pageViewId", pageViewID, "clients", count)
	return ch
}

// Unsubscribe removes a stream client and closes its channel.
func (b *ReportBroadcaster) Unsubscribe(pageViewID string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.pageViews[pageViewID]
	if !exists {
		return
	}
	remaining := make([]chan Message, 0, len(clients))
	for _, client := range clients {
		if client == ch {
			close(client)
			continue
		}
		remaining = append(remaining, client)
	}
	if len(remaining) == 0 {
		delete(b.pageViews, pageViewID)
	} else {
		b.pageViews[pageViewID] = remaining
	}
	b.logger.HTTP().Debug("Stream client unregistered", "pageViewId", pageViewID)
}

// Publish delivers a message to every subscriber of the page view. Slow
// subscribers drop messages instead of blocking the reporter.
func (b *ReportBroadcaster) Publish(pageViewID string, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.pageViews[pageViewID] {
		select {
		case ch <- msg:
		default:
			b.logger.HTTP().Warn("Stream channel full, message dropped", "pageViewId", pageViewID, "event", msg.Event)
		}
	}
}

// SubscriberCount returns the number of live clients of a page view.
func (b *ReportBroadcaster) SubscriberCount(pageViewID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pageViews[pageViewID])
}

// Close disconnects every client of a page view.
func (b *ReportBroadcaster) Close(pageViewID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.pageViews[pageViewID] {
		close(ch)
	}
	delete(b.pageViews, pageViewID)
}

// CloseAll disconnects every client of every page view and returns how many
// page views had live clients.
func (b *ReportBroadcaster) CloseAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.pageViews)
	for id, clients := range b.pageViews {
		for _, ch := range clients {
			close(ch)
		}
		delete(b.pageViews, id)
	}
	return n
}
