package notifications

import "go.uber.org/zap"

// LogNotifier writes events to the structured log. It is always registered
// so every outbound event leaves a local trace even when no external channel
// is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event
func (l *LogNotifier) Notify(event Event) error {
	l.logger.Info("event",
		zap.String("name", event.Name()),
		zap.String("summary", event.Summary()))
	return nil
}
