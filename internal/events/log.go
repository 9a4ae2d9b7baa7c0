package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the event at info level.
func (s *LogSink) Deliver(_ context.Context, event Event) error {
	s.logger.Info("Classification",
		zap.String("event_id", event.ID),
		zap.Time("timestamp", event.Timestamp),
		zap.String("referer_url", event.RefererURL),
		zap.String("medium", event.Medium),
		zap.String("referer", event.Referer),
		zap.Stringp("search_term", event.SearchTerm),
	)
	return nil
}
