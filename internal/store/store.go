// Package store defines the datastore abstraction for catalog-sync.
// The sync engine depends on the Store interface, never on concrete
// implementations; it issues no raw queries of its own. This keeps the
// engine testable without a database and portable across storage engines.
package store

import (
	"context"
	"errors"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// ErrNotFound is returned by Get* methods when no row matches.
var ErrNotFound = errors.New("record not found")

// Store defines all data access operations for catalog-sync.
type Store interface {
	// Products
	GetProductByExternalID(ctx context.Context, externalID string) (*domain.Product, error)
	InsertProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, externalID string, p *domain.Product) error
	CountProducts(ctx context.Context) (int, error)

	// Categories
	GetCategoryByExternalID(ctx context.Context, externalID string) (*domain.Category, error)
	InsertCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, externalID string, c *domain.Category) error
	CountCategories(ctx context.Context) (int, error)

	// Trademarks
	GetTrademarkByExternalID(ctx context.Context, externalID string) (*domain.Trademark, error)
	InsertTrademark(ctx context.Context, t *domain.Trademark) error
	UpdateTrademark(ctx context.Context, externalID string, t *domain.Trademark) error
	CountTrademarks(ctx context.Context) (int, error)

	// Sync runs
	InsertSyncRun(ctx context.Context, entity domain.EntityKind) (id string, err error)
	CompleteSyncRun(ctx context.Context, id string, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, entity string, limit int) ([]domain.SyncRun, error)
	LastSuccessfulRun(ctx context.Context, entity domain.EntityKind) (*domain.SyncRun, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
