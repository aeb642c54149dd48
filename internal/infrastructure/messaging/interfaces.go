// Package messaging defines interfaces for real-time communication.
package messaging

// Broadcaster fans out reported engagement events to the live debug streams of a page view.
type Broadcaster interface {
	Subscribe(pageViewID string) chan Message
	Unsubscribe(pageViewID string, ch chan Message)
	Publish(pageViewID string, msg Message)
	SubscriberCount(pageViewID string) int
	Close(pageViewID string)
	CloseAll() int
}
