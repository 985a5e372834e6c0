// Package eventbus provides the Bus interface and an in-memory implementation
// for streaming Git operation events in GitScribe.
package eventbus

import (
	"sync"
	"time"
)

// Event describes one completed Git operation, keyed by repository.
type Event struct {
	// Type is "issue_created", "pull_request_created" or
	// "permissions_checked".
	Type       string    `json:"type"`
	Service    string    `json:"service"`
	Repository string    `json:"repository"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	Time       time.Time `json:"time"`
}

// Bus provides pub/sub for repository events.
type Bus interface {
	Subscribe(repository string) chan *Event
	Unsubscribe(repository string, ch chan *Event)
	Publish(repository string, event *Event)
}

// InMemoryBus is the default in-memory Bus implementation.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]chan *Event
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[string][]chan *Event),
	}
}

// Subscribe creates a channel that receives events for a repository.
func (b *InMemoryBus) Subscribe(repository string) chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *Event, 64)
	b.subs[repository] = append(b.subs[repository], ch)
	return ch
}

// Unsubscribe removes a channel from the repository's subscribers.
func (b *InMemoryBus) Unsubscribe(repository string, ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[repository]
	for i, s := range subs {
		if s == ch {
			b.subs[repository] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers for a repository.
func (b *InMemoryBus) Publish(repository string, event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[repository] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is too slow.
		}
	}
}
