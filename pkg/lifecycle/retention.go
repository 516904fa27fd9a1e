package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically purges trashed records past the retention
// horizon. It runs daily.
type RetentionWorker struct {
	manager       *Manager
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

// NewRetentionWorker creates a RetentionWorker. retentionDays <= 0 disables
// it.
func NewRetentionWorker(manager *Manager, retentionDays int, logger *slog.Logger) *RetentionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionWorker{
		manager:       manager,
		retentionDays: retentionDays,
		interval:      24 * time.Hour,
		logger:        logger,
	}
}

// Run starts the worker. It runs until the context is cancelled.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.manager == nil || w.retentionDays <= 0 {
		w.logger.Info("trash retention worker disabled", "retentionDays", w.retentionDays)
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("trash retention worker started",
		"retentionDays", w.retentionDays,
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("trash retention worker stopped")
			return
		case <-ticker.C:
			if _, err := w.manager.PurgeAllExpired(w.retentionDays); err != nil {
				w.logger.Error("trash retention pass failed", "error", err)
			}
		}
	}
}
