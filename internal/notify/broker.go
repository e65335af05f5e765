// Package notify fans out template lifecycle notifications to per-request
// subscribers. Subscriptions are scoped: Subscribe returns a release
// function the caller must defer, so the subscriber set can never grow
// beyond the set of in-flight requests.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Event kinds published by the lifecycle manager.
const (
	EventUpdated     = "updated"
	EventPublished   = "published"
	EventUnpublished = "unpublished"
	EventDeleted     = "deleted"
)

// TemplateEvent describes a change to a single template.
type TemplateEvent struct {
	TemplateID uuid.UUID `json:"template_id"`
	Kind       string    `json:"kind"`
	Version    int       `json:"version,omitempty"`
}

// Broker manages notification streams for templates.
type Broker struct {
	subscribers map[uuid.UUID]map[chan TemplateEvent]bool
	mu          sync.RWMutex
}

// NewBroker creates a new notification broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[uuid.UUID]map[chan TemplateEvent]bool),
	}
}

// Subscribe registers interest in one template's events. The returned
// release function removes the subscription and closes the channel; it is
// safe to call more than once.
func (b *Broker) Subscribe(templateID uuid.UUID) (<-chan TemplateEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan TemplateEvent, 16) // buffered to keep Publish non-blocking

	if b.subscribers[templateID] == nil {
		b.subscribers[templateID] = make(map[chan TemplateEvent]bool)
	}
	b.subscribers[templateID][ch] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.unsubscribe(templateID, ch)
		})
	}
	return ch, release
}

func (b *Broker) unsubscribe(templateID uuid.UUID, ch chan TemplateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, exists := b.subscribers[templateID]; exists {
		delete(subs, ch)
		close(ch)

		if len(subs) == 0 {
			delete(b.subscribers, templateID)
		}
	}
}

// Publish sends an event to all subscribers of the template.
func (b *Broker) Publish(ev TemplateEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, exists := b.subscribers[ev.TemplateID]; exists {
		for ch := range subs {
			// Non-blocking send: a slow subscriber drops events rather than
			// stalling the publishing request.
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for a template.
func (b *Broker) SubscriberCount(templateID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[templateID])
}
