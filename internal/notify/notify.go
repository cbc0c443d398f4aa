package notify

import "go.uber.org/zap"

// Kind classifies a user-facing notification.
type Kind string

// Notification kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Sink receives user-facing notifications. The UI wires a toast sink; tests
// and headless runs use the log sink.
type Sink interface {
	Notify(kind Kind, message string)
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify records the notification.
func (s *LogSink) Notify(kind Kind, message string) {
	switch kind {
	case KindError:
		s.logger.Warn("notification", zap.String("kind", string(kind)), zap.String("message", message))
	default:
		s.logger.Info("notification", zap.String("kind", string(kind)), zap.String("message", message))
	}
}
