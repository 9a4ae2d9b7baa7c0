// Package pubsub publishes classification events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/referer-classifier/internal/events"
)

// Sink wraps a Pub/Sub topic.
type Sink struct {
	topic *pubsub.Topic
}

// New creates a Sink for the provided topic.
func New(topic *pubsub.Topic) *Sink {
	return &Sink{topic: topic}
}

// Deliver marshals the event to JSON and publishes it. Medium and known are
// copied into attributes so subscriptions can filter on them.
func (s *Sink) Deliver(ctx context.Context, event events.Event) error {
	if s.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	msg, err := message(event)
	if err != nil {
		return err
	}
	if _, err := s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Stop flushes pending messages and stops the topic's goroutines.
func (s *Sink) Stop() {
	if s.topic != nil {
		s.topic.Stop()
	}
}

func message(event events.Event) (*pubsub.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id": event.ID,
			"medium":   event.Medium,
			"known":    strconv.FormatBool(event.Known),
		},
	}, nil
}
