package notify

import (
	"context"
	"log/slog"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded notifications. It is
// used when Discord (or another notification backend) is not configured.
// The zero value is usable and logs via slog.Default.
type NoOpNotifier struct {
	Log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards notifications with a log
// message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{Log: log}
}

func (n *NoOpNotifier) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

// SendSyncReport logs and discards a sync summary.
func (n *NoOpNotifier) SendSyncReport(_ context.Context, report *domain.SyncReport) error {
	n.logger().Debug("sync report discarded (no backend configured)",
		"success", report.Success(),
		"errors", len(report.FlattenErrors()),
	)
	return nil
}

// SendSyncFailure logs and discards a failure notification.
func (n *NoOpNotifier) SendSyncFailure(_ context.Context, entity domain.EntityKind, err error) error {
	n.logger().Debug("sync failure notification discarded (no backend configured)",
		"entity", entity,
		"error", err,
	)
	return nil
}
