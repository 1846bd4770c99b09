package dispatch

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// LogNotifier writes notifications to the service log. It is the transport
// used when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.logger.Warn(note.Title,
		"id", note.ID,
		"city", note.City,
		"aqi", note.AQI,
		"body", note.Body,
	)
	return nil
}
