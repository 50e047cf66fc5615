//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avelichko/catalog-sync/internal/store"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("catsync_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, s.Migrate(ctx))

	return s
}

func testProduct(externalID string) *domain.Product {
	return &domain.Product{
		ExternalID:          externalID,
		Name:                "Orange juice 1L",
		Code:                "OJ-1000",
		Price:               2.49,
		Currency:            "EUR",
		ImageURL:            "https://cdn.example.com/oj.png",
		ProductType:         "beverage",
		CategoryExternalID:  "c-10",
		TrademarkExternalID: "t-3",
		SyncedAt:            time.Now().Truncate(time.Microsecond),
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_ProductRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	t.Run("insert new product", func(t *testing.T) {
		p := testProduct("p-insert-1")
		require.NoError(t, s.InsertProduct(ctx, p))
		assert.NotEmpty(t, p.ID)
		assert.False(t, p.CreatedAt.IsZero())
		assert.False(t, p.UpdatedAt.IsZero())
	})

	t.Run("get by external id", func(t *testing.T) {
		p := testProduct("p-get-1")
		require.NoError(t, s.InsertProduct(ctx, p))

		got, err := s.GetProductByExternalID(ctx, "p-get-1")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Orange juice 1L", got.Name)
		assert.InDelta(t, 2.49, got.Price, 0.001)
		assert.Equal(t, "c-10", got.CategoryExternalID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetProductByExternalID(ctx, "nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update changes price", func(t *testing.T) {
		p := testProduct("p-update-1")
		require.NoError(t, s.InsertProduct(ctx, p))

		p2 := testProduct("p-update-1")
		p2.Price = 1.99
		require.NoError(t, s.UpdateProduct(ctx, "p-update-1", p2))
		assert.Equal(t, p.ID, p2.ID, "update keeps the local identifier")

		got, err := s.GetProductByExternalID(ctx, "p-update-1")
		require.NoError(t, err)
		assert.InDelta(t, 1.99, got.Price, 0.001)
	})

	t.Run("update missing product", func(t *testing.T) {
		err := s.UpdateProduct(ctx, "no-such-product", testProduct("no-such-product"))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate external id rejected", func(t *testing.T) {
		p := testProduct("p-dup-1")
		require.NoError(t, s.InsertProduct(ctx, p))
		assert.Error(t, s.InsertProduct(ctx, testProduct("p-dup-1")))
	})
}

func TestPostgresStore_CountProducts(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	n, err := s.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := range 3 {
		require.NoError(t, s.InsertProduct(ctx, testProduct("p-count-"+string(rune('a'+i)))))
	}

	n, err = s.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPostgresStore_CategoryRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	c := &domain.Category{
		ExternalID:       "c-10",
		Name:             "Juice",
		ParentExternalID: "c-1",
		SyncedAt:         time.Now().Truncate(time.Microsecond),
	}
	require.NoError(t, s.InsertCategory(ctx, c))
	assert.NotEmpty(t, c.ID)

	got, err := s.GetCategoryByExternalID(ctx, "c-10")
	require.NoError(t, err)
	assert.Equal(t, "Juice", got.Name)
	assert.Equal(t, "c-1", got.ParentExternalID)

	got.Name = "Fruit juice"
	require.NoError(t, s.UpdateCategory(ctx, "c-10", got))

	updated, err := s.GetCategoryByExternalID(ctx, "c-10")
	require.NoError(t, err)
	assert.Equal(t, "Fruit juice", updated.Name)

	n, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgresStore_TrademarkRoundTrip(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	tm := &domain.Trademark{
		ExternalID: "t-3",
		Name:       "Sunny Farms",
		SyncedAt:   time.Now().Truncate(time.Microsecond),
	}
	require.NoError(t, s.InsertTrademark(ctx, tm))
	assert.NotEmpty(t, tm.ID)

	got, err := s.GetTrademarkByExternalID(ctx, "t-3")
	require.NoError(t, err)
	assert.Equal(t, "Sunny Farms", got.Name)

	got.Name = "Sunny Farms Co"
	require.NoError(t, s.UpdateTrademark(ctx, "t-3", got))

	updated, err := s.GetTrademarkByExternalID(ctx, "t-3")
	require.NoError(t, err)
	assert.Equal(t, "Sunny Farms Co", updated.Name)

	n, err := s.CountTrademarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgresStore_SyncRunLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	id, err := s.InsertSyncRun(ctx, domain.EntityProduct)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Running run is not a successful one yet.
	_, err = s.LastSuccessfulRun(ctx, domain.EntityProduct)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CompleteSyncRun(ctx, id, &domain.SyncRun{
		Entity:       domain.EntityProduct,
		Status:       domain.RunSucceeded,
		TotalFetched: 120,
		NewCount:     5,
		UpdatedCount: 115,
	}))

	last, err := s.LastSuccessfulRun(ctx, domain.EntityProduct)
	require.NoError(t, err)
	assert.Equal(t, id, last.ID)
	assert.Equal(t, domain.RunSucceeded, last.Status)
	assert.Equal(t, 120, last.TotalFetched)
	require.NotNil(t, last.FinishedAt)

	runs, err := s.ListSyncRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
}

func TestPostgresStore_LastSuccessfulRunIncludesPartial(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	failedID, err := s.InsertSyncRun(ctx, domain.EntityProduct)
	require.NoError(t, err)
	require.NoError(t, s.CompleteSyncRun(ctx, failedID, &domain.SyncRun{
		Entity:    domain.EntityProduct,
		Status:    domain.RunFailed,
		ErrorText: "credential exchange failed",
	}))

	partialID, err := s.InsertSyncRun(ctx, domain.EntityProduct)
	require.NoError(t, err)
	require.NoError(t, s.CompleteSyncRun(ctx, partialID, &domain.SyncRun{
		Entity:       domain.EntityProduct,
		Status:       domain.RunPartial,
		TotalFetched: 80,
		ErrorCount:   2,
	}))

	last, err := s.LastSuccessfulRun(ctx, domain.EntityProduct)
	require.NoError(t, err)
	assert.Equal(t, partialID, last.ID, "partial runs count as usable cutoffs")
}

func TestPostgresStore_ListSyncRunsFilters(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	for _, entity := range []domain.EntityKind{
		domain.EntityProduct, domain.EntityCategory, domain.EntityTrademark,
	} {
		id, err := s.InsertSyncRun(ctx, entity)
		require.NoError(t, err)
		require.NoError(t, s.CompleteSyncRun(ctx, id, &domain.SyncRun{
			Entity: entity,
			Status: domain.RunSucceeded,
		}))
	}

	all, err := s.ListSyncRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	products, err := s.ListSyncRuns(ctx, "product", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.EntityProduct, products[0].Entity)

	limited, err := s.ListSyncRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPostgresStore_MigrateIsIdempotent(t *testing.T) {
	s := setupPostgres(t)
	// setupPostgres already migrated once.
	require.NoError(t, s.Migrate(context.Background()))
}
