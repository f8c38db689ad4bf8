// Package progress implements the progress/observability surface.
package progress

import (
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
)

// LogObserver publishes progress snapshots to the log.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a new log-backed observer
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Publish logs one snapshot.
func (o *LogObserver) Publish(snapshot core.ProgressSnapshot) {
	o.logger.Info("Progress",
		zap.String("status", snapshot.StatusText),
		zap.Int("processed", snapshot.ProcessedEmails),
		zap.Int("total", snapshot.TotalEmails),
		zap.Int("chunk", snapshot.CurrentChunk),
		zap.Int("total_chunks", snapshot.TotalChunks),
		zap.Int("errors", len(snapshot.Errors)))
}
