package notify

import (
	"context"
	"log/slog"
)

// LogSink writes events to a logger. It stands in for the broker when none is
// configured so local runs still show what would have been published.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, channel string, payload EventPayload) error {
	s.logger.InfoContext(ctx, "card event",
		"channel", channel,
		"title", payload.Title,
		"attribute", payload.Attribute,
		"share_link", payload.ShareLink,
	)
	return nil
}
