// Package events records classification outcomes and fans them out to
// downstream sinks (logs, Pub/Sub, Postgres) without blocking the caller.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/referer-classifier/internal/referer"
)

// Event is the record emitted for one classification.
type Event struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	RefererURL      string    `json:"referer_url"`
	CurrentURL      string    `json:"current_url,omitempty"`
	Known           bool      `json:"known"`
	Referer         string    `json:"referer,omitempty"`
	Medium          string    `json:"medium"`
	SearchParameter string    `json:"search_parameter,omitempty"`
	SearchTerm      *string   `json:"search_term,omitempty"`
}

// Sink delivers events to a downstream system.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces event IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// SystemClock implements Clock using time.Now in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator creates UUIDv7 strings, which sort by creation time.
type UUIDGenerator struct{}

// NewID returns a UUIDv7 string.
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Builder stamps classification results into Events.
type Builder struct {
	clock Clock
	idGen IDGenerator
}

// NewBuilder returns a Builder; nil arguments fall back to SystemClock and
// UUIDGenerator.
func NewBuilder(clock Clock, idGen IDGenerator) *Builder {
	if clock == nil {
		clock = SystemClock{}
	}
	if idGen == nil {
		idGen = UUIDGenerator{}
	}
	return &Builder{clock: clock, idGen: idGen}
}

// Build creates the Event for res.
func (b *Builder) Build(refererURL, currentURL string, res referer.Result) (Event, error) {
	id, err := b.idGen.NewID()
	if err != nil {
		return Event{}, err
	}
	var term *string
	if res.HasSearchTerm() {
		t := res.SearchTerm
		term = &t
	}
	return Event{
		ID:              id,
		Timestamp:       b.clock.Now(),
		RefererURL:      refererURL,
		CurrentURL:      currentURL,
		Known:           res.Known,
		Referer:         res.Referer,
		Medium:          res.Medium,
		SearchParameter: res.SearchParameter,
		SearchTerm:      term,
	}, nil
}
