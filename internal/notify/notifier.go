// Package notify defines the notification interface and implementations
// for sync outcome delivery.
package notify

import (
	"context"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// Notifier delivers sync outcome notifications to operators.
type Notifier interface {
	SendSyncReport(ctx context.Context, report *domain.SyncReport) error
	SendSyncFailure(ctx context.Context, entity domain.EntityKind, err error) error
}
