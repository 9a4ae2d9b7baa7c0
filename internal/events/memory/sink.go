// Package memory contains an in-memory event sink for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/referer-classifier/internal/events"
)

// Sink stores delivered events for inspection.
type Sink struct {
	mu     sync.RWMutex
	events []events.Event
}

// New returns a memory Sink.
func New() *Sink {
	return &Sink{}
}

// Deliver records the event.
func (s *Sink) Deliver(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns the recorded events.
func (s *Sink) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}
