package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// GetProductByExternalID retrieves a product by its provider identifier.
func (s *PostgresStore) GetProductByExternalID(
	ctx context.Context,
	externalID string,
) (*domain.Product, error) {
	p := &domain.Product{}
	err := s.pool.QueryRow(ctx, queryGetProductByExternalID, externalID).Scan(
		&p.ID, &p.ExternalID, &p.Name, &p.Code, &p.Price, &p.Currency,
		&p.ImageURL, &p.ProductType, &p.CategoryExternalID, &p.TrademarkExternalID,
		&p.SyncedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err, "product")
	}
	return p, nil
}

// InsertProduct creates a new product row.
func (s *PostgresStore) InsertProduct(ctx context.Context, p *domain.Product) error {
	args := pgx.NamedArgs{
		"external_id":           p.ExternalID,
		"name":                  p.Name,
		"code":                  p.Code,
		"price":                 p.Price,
		"currency":              p.Currency,
		"image_url":             p.ImageURL,
		"product_type":          p.ProductType,
		"category_external_id":  p.CategoryExternalID,
		"trademark_external_id": p.TrademarkExternalID,
		"synced_at":             p.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryInsertProduct, args).Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting product %s: %w", p.ExternalID, err)
	}
	return nil
}

// UpdateProduct updates the mutable fields of a product by external ID.
func (s *PostgresStore) UpdateProduct(
	ctx context.Context,
	externalID string,
	p *domain.Product,
) error {
	args := pgx.NamedArgs{
		"external_id":           externalID,
		"name":                  p.Name,
		"code":                  p.Code,
		"price":                 p.Price,
		"currency":              p.Currency,
		"image_url":             p.ImageURL,
		"product_type":          p.ProductType,
		"category_external_id":  p.CategoryExternalID,
		"trademark_external_id": p.TrademarkExternalID,
		"synced_at":             p.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryUpdateProduct, args).Scan(&p.ID); err != nil {
		return fmt.Errorf("updating product %s: %w", externalID, wrapNotFound(err, "product"))
	}
	return nil
}

// CountProducts returns the number of persisted products.
func (s *PostgresStore) CountProducts(ctx context.Context) (int, error) {
	return s.count(ctx, queryCountProducts)
}

// GetCategoryByExternalID retrieves a category by its provider identifier.
func (s *PostgresStore) GetCategoryByExternalID(
	ctx context.Context,
	externalID string,
) (*domain.Category, error) {
	c := &domain.Category{}
	err := s.pool.QueryRow(ctx, queryGetCategoryByExternalID, externalID).Scan(
		&c.ID, &c.ExternalID, &c.Name, &c.ParentExternalID,
		&c.SyncedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err, "category")
	}
	return c, nil
}

// InsertCategory creates a new category row.
func (s *PostgresStore) InsertCategory(ctx context.Context, c *domain.Category) error {
	args := pgx.NamedArgs{
		"external_id":        c.ExternalID,
		"name":               c.Name,
		"parent_external_id": c.ParentExternalID,
		"synced_at":          c.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryInsertCategory, args).Scan(
		&c.ID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting category %s: %w", c.ExternalID, err)
	}
	return nil
}

// UpdateCategory updates the mutable fields of a category by external ID.
func (s *PostgresStore) UpdateCategory(
	ctx context.Context,
	externalID string,
	c *domain.Category,
) error {
	args := pgx.NamedArgs{
		"external_id":        externalID,
		"name":               c.Name,
		"parent_external_id": c.ParentExternalID,
		"synced_at":          c.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryUpdateCategory, args).Scan(&c.ID); err != nil {
		return fmt.Errorf("updating category %s: %w", externalID, wrapNotFound(err, "category"))
	}
	return nil
}

// CountCategories returns the number of persisted categories.
func (s *PostgresStore) CountCategories(ctx context.Context) (int, error) {
	return s.count(ctx, queryCountCategories)
}

// GetTrademarkByExternalID retrieves a trademark by its provider identifier.
func (s *PostgresStore) GetTrademarkByExternalID(
	ctx context.Context,
	externalID string,
) (*domain.Trademark, error) {
	t := &domain.Trademark{}
	err := s.pool.QueryRow(ctx, queryGetTrademarkByExternalID, externalID).Scan(
		&t.ID, &t.ExternalID, &t.Name, &t.SyncedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err, "trademark")
	}
	return t, nil
}

// InsertTrademark creates a new trademark row.
func (s *PostgresStore) InsertTrademark(ctx context.Context, t *domain.Trademark) error {
	args := pgx.NamedArgs{
		"external_id": t.ExternalID,
		"name":        t.Name,
		"synced_at":   t.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryInsertTrademark, args).Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting trademark %s: %w", t.ExternalID, err)
	}
	return nil
}

// UpdateTrademark updates the mutable fields of a trademark by external ID.
func (s *PostgresStore) UpdateTrademark(
	ctx context.Context,
	externalID string,
	t *domain.Trademark,
) error {
	args := pgx.NamedArgs{
		"external_id": externalID,
		"name":        t.Name,
		"synced_at":   t.SyncedAt,
	}

	if err := s.pool.QueryRow(ctx, queryUpdateTrademark, args).Scan(&t.ID); err != nil {
		return fmt.Errorf("updating trademark %s: %w", externalID, wrapNotFound(err, "trademark"))
	}
	return nil
}

// CountTrademarks returns the number of persisted trademarks.
func (s *PostgresStore) CountTrademarks(ctx context.Context) (int, error) {
	return s.count(ctx, queryCountTrademarks)
}

// InsertSyncRun opens a run record in the running state.
func (s *PostgresStore) InsertSyncRun(
	ctx context.Context,
	entity domain.EntityKind,
) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertSyncRun, string(entity)).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting sync run: %w", err)
	}
	return id, nil
}

// CompleteSyncRun stamps a run with its terminal status and counters.
func (s *PostgresStore) CompleteSyncRun(
	ctx context.Context,
	id string,
	run *domain.SyncRun,
) error {
	args := pgx.NamedArgs{
		"id":            id,
		"status":        string(run.Status),
		"total_fetched": run.TotalFetched,
		"new_count":     run.NewCount,
		"updated_count": run.UpdatedCount,
		"error_count":   run.ErrorCount,
		"error_text":    run.ErrorText,
	}

	if _, err := s.pool.Exec(ctx, queryCompleteSyncRun, args); err != nil {
		return fmt.Errorf("completing sync run %s: %w", id, err)
	}
	return nil
}

// ListSyncRuns returns recent runs, newest first, optionally filtered by
// entity. Limit defaults to 20.
func (s *PostgresStore) ListSyncRuns(
	ctx context.Context,
	entity string,
	limit int,
) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, queryListSyncRuns, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var r domain.SyncRun
		if err := scanSyncRun(rows, &r); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastSuccessfulRun returns the most recent succeeded or partial run for an
// entity, or ErrNotFound when none exists yet.
func (s *PostgresStore) LastSuccessfulRun(
	ctx context.Context,
	entity domain.EntityKind,
) (*domain.SyncRun, error) {
	r := &domain.SyncRun{}
	if err := scanSyncRun(
		s.pool.QueryRow(ctx, queryLastSuccessfulRun, string(entity)), r,
	); err != nil {
		return nil, wrapNotFound(err, "sync run")
	}
	return r, nil
}

func (s *PostgresStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner, r *domain.SyncRun) error {
	return row.Scan(
		&r.ID, &r.Entity, &r.Status, &r.TotalFetched, &r.NewCount,
		&r.UpdatedCount, &r.ErrorCount, &r.ErrorText, &r.StartedAt, &r.FinishedAt,
	)
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
