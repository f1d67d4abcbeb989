package deadletter

import (
	"context"

	"github.com/okian/sentinel/pkg/logger"
)

// LogSink only records dead letters in the log.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink writing to l.
func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Send(ctx context.Context, entry Entry) error { //nolint:gocritic // hugeParam: entries are values
	s.log.Error(ctx, "alert dead-lettered",
		logger.String("alertId", entry.Message.ID),
		logger.String("reason", entry.Reason),
		logger.Int("attempts", entry.Attempts),
		logger.Int("lastStatus", entry.LastStatus),
	)
	return nil
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Close() error { return nil }
