// Package sync orchestrates catalog synchronization: it drives the provider
// fetch pipeline and reconciles fetched records into the store, one entity
// kind at a time.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelichko/catalog-sync/internal/metrics"
	"github.com/avelichko/catalog-sync/internal/notify"
	"github.com/avelichko/catalog-sync/internal/provider"
	"github.com/avelichko/catalog-sync/internal/store"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// Engine reconciles provider catalog data into local storage. Each record is
// processed independently: one record's failure lands in the result's error
// list and the run continues. Only configuration and authentication errors
// abort an invocation.
type Engine struct {
	store    store.Store
	fetcher  provider.CatalogFetcher
	notifier notify.Notifier
	log      *slog.Logger

	// productCategories restricts product syncs to the named root
	// categories and their descendants. Configuration, not hardcoding.
	productCategories []string
	nowFunc           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithProductCategories restricts product syncs to the named categories.
func WithProductCategories(names []string) EngineOption {
	return func(e *Engine) {
		e.productCategories = names
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	f provider.CatalogFetcher,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:    s,
		fetcher:  f,
		notifier: n,
		log:      slog.Default(),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// entityOps adapts the per-entity store methods to the shared sync loop.
type entityOps struct {
	count  func(ctx context.Context) (int, error)
	upsert func(ctx context.Context, rec provider.CatalogRecord, syncedAt time.Time) (created bool, err error)
}

// SyncTrademarks pulls the full brand set and merges it into the store.
func (e *Engine) SyncTrademarks(ctx context.Context) (*domain.SyncResult, error) {
	return e.syncEntity(ctx, domain.EntityTrademark, provider.FetchOptions{}, entityOps{
		count: e.store.CountTrademarks,
		upsert: func(ctx context.Context, rec provider.CatalogRecord, syncedAt time.Time) (bool, error) {
			t := provider.ToTrademark(rec)
			t.SyncedAt = syncedAt

			if _, err := e.store.GetTrademarkByExternalID(ctx, rec.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return true, e.store.InsertTrademark(ctx, t)
				}
				return false, err
			}
			return false, e.store.UpdateTrademark(ctx, rec.ID, t)
		},
	})
}

// SyncCategories pulls the full category set and merges it into the store.
func (e *Engine) SyncCategories(ctx context.Context) (*domain.SyncResult, error) {
	return e.syncEntity(ctx, domain.EntityCategory, provider.FetchOptions{}, entityOps{
		count: e.store.CountCategories,
		upsert: func(ctx context.Context, rec provider.CatalogRecord, syncedAt time.Time) (bool, error) {
			c := provider.ToCategory(rec)
			c.SyncedAt = syncedAt

			if _, err := e.store.GetCategoryByExternalID(ctx, rec.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return true, e.store.InsertCategory(ctx, c)
				}
				return false, err
			}
			return false, e.store.UpdateCategory(ctx, rec.ID, c)
		},
	})
}

// SyncProducts pulls products, optionally bounded by a modified-since cutoff
// for incremental runs, and merges them into the store.
func (e *Engine) SyncProducts(ctx context.Context, since *time.Time) (*domain.SyncResult, error) {
	opts := provider.FetchOptions{
		ModifiedSince: since,
		CategoryNames: e.productCategories,
	}

	return e.syncEntity(ctx, domain.EntityProduct, opts, entityOps{
		count: e.store.CountProducts,
		upsert: func(ctx context.Context, rec provider.CatalogRecord, syncedAt time.Time) (bool, error) {
			p := provider.ToProduct(rec)
			p.SyncedAt = syncedAt

			if _, err := e.store.GetProductByExternalID(ctx, rec.ID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return true, e.store.InsertProduct(ctx, p)
				}
				return false, err
			}
			return false, e.store.UpdateProduct(ctx, rec.ID, p)
		},
	})
}

// SyncProductsIncremental syncs products modified since the last successful
// product run, or everything when no prior run exists.
func (e *Engine) SyncProductsIncremental(ctx context.Context) (*domain.SyncResult, error) {
	var since *time.Time

	last, err := e.store.LastSuccessfulRun(ctx, domain.EntityProduct)
	switch {
	case err == nil:
		since = &last.StartedAt
	case errors.Is(err, store.ErrNotFound):
		// First run: full pull.
	default:
		return nil, fmt.Errorf("looking up last product run: %w", err)
	}

	return e.SyncProducts(ctx, since)
}

// FullSync runs trademark, category and product syncs in dependency order:
// products reference categories and brands. A failure in one stage is
// recorded and must not prevent the next stage from running.
func (e *Engine) FullSync(ctx context.Context) (*domain.SyncReport, error) {
	report := &domain.SyncReport{StartedAt: e.nowFunc()}

	var err error
	if report.Trademarks, err = e.SyncTrademarks(ctx); err != nil {
		e.recordStageFailure(ctx, report, domain.EntityTrademark, err)
	}
	if report.Categories, err = e.SyncCategories(ctx); err != nil {
		e.recordStageFailure(ctx, report, domain.EntityCategory, err)
	}
	if report.Products, err = e.SyncProducts(ctx, nil); err != nil {
		e.recordStageFailure(ctx, report, domain.EntityProduct, err)
	}

	report.FinishedAt = e.nowFunc()

	if err := e.notifier.SendSyncReport(ctx, report); err != nil {
		e.log.Error("sync report notification failed", "error", err)
	}

	return report, nil
}

func (e *Engine) recordStageFailure(
	ctx context.Context,
	report *domain.SyncReport,
	entity domain.EntityKind,
	err error,
) {
	e.log.Error("sync stage failed", "entity", entity, "error", err)
	report.Errors = append(report.Errors, domain.RecordError{
		ExternalID: string(entity),
		Message:    err.Error(),
	})

	if notifyErr := e.notifier.SendSyncFailure(ctx, entity, err); notifyErr != nil {
		e.log.Error("failure notification failed", "entity", entity, "error", notifyErr)
	}
}

// syncEntity is the shared fetch, diff and upsert loop.
func (e *Engine) syncEntity(
	ctx context.Context,
	entity domain.EntityKind,
	opts provider.FetchOptions,
	ops entityOps,
) (*domain.SyncResult, error) {
	start := e.nowFunc()
	defer func() {
		metrics.SyncDuration.WithLabelValues(string(entity)).
			Observe(time.Since(start).Seconds())
	}()

	result := &domain.SyncResult{Entity: entity, StartedAt: start}

	runID, runErr := e.store.InsertSyncRun(ctx, entity)
	if runErr != nil {
		// Run bookkeeping is best-effort; the sync itself proceeds.
		e.log.Warn("recording sync run failed", "entity", entity, "error", runErr)
	}

	before, err := ops.count(ctx)
	if err != nil {
		e.completeRun(ctx, runID, result, err)
		return nil, fmt.Errorf("counting %s before sync: %w", entity, err)
	}
	result.BeforeCount = before

	fetched, fetchErr := e.fetcher.FetchAll(ctx, entity, opts)
	if fetchErr != nil {
		if isFatal(fetchErr) {
			e.completeRun(ctx, runID, result, fetchErr)
			return nil, fmt.Errorf("syncing %s: %w", entity, fetchErr)
		}
		// A failed page or category still leaves usable batches; record
		// the failure and merge what arrived.
		e.log.Warn("partial fetch", "entity", entity, "error", fetchErr)
		result.AddError(fetchPosition(fetchErr), fetchErr)
	}

	if fetched != nil {
		e.mergeFetched(ctx, entity, fetched, opts, result, ops)
	}

	after, err := ops.count(ctx)
	if err != nil {
		e.completeRun(ctx, runID, result, err)
		return nil, fmt.Errorf("counting %s after sync: %w", entity, err)
	}
	result.AfterCount = after
	result.FinishedAt = e.nowFunc()

	e.completeRun(ctx, runID, result, nil)
	e.log.Info("sync finished",
		"entity", entity,
		"fetched", result.TotalFetched,
		"new", result.NewCount,
		"updated", result.UpdatedCount,
		"skipped", result.SkippedCount,
		"errors", len(result.Errors),
	)

	return result, nil
}

func (e *Engine) mergeFetched(
	ctx context.Context,
	entity domain.EntityKind,
	fetched *provider.FetchResult,
	opts provider.FetchOptions,
	result *domain.SyncResult,
	ops entityOps,
) {
	result.TotalFetched = len(fetched.Records)
	result.RemovedIDs = fetched.RemovedIDs

	validation := provider.ValidateBatch(
		fetched.Records, fetched.ReportedTotal, len(opts.CategoryNames) > 0,
	)
	for _, dup := range validation.DuplicateIDs {
		result.AddError(dup, errors.New("duplicate external identifier in fetched set"))
	}
	if validation.CountMismatch {
		e.log.Warn("fetched count differs from provider total",
			"entity", entity,
			"fetched", validation.FetchedCount,
			"reported", validation.ReportedTotal,
		)
	}

	syncedAt := e.nowFunc()
	for _, rec := range fetched.Records {
		if ctx.Err() != nil {
			result.AddError(rec.ID, ctx.Err())
			return
		}

		if rec.ID == "" {
			result.SkippedCount++
			metrics.SyncRecordsTotal.WithLabelValues(string(entity), "skipped").Inc()
			continue
		}

		created, err := ops.upsert(ctx, rec, syncedAt)
		if err != nil {
			result.AddError(rec.ID, err)
			metrics.SyncRecordsTotal.WithLabelValues(string(entity), "error").Inc()
			continue
		}

		if created {
			result.NewCount++
			metrics.SyncRecordsTotal.WithLabelValues(string(entity), "new").Inc()
		} else {
			result.UpdatedCount++
			metrics.SyncRecordsTotal.WithLabelValues(string(entity), "updated").Inc()
		}
	}
}

// completeRun stamps the persisted run record. Best-effort.
func (e *Engine) completeRun(
	ctx context.Context,
	runID string,
	result *domain.SyncResult,
	fatal error,
) {
	status := domain.RunSucceeded
	errText := ""
	switch {
	case fatal != nil:
		status = domain.RunFailed
		errText = fatal.Error()
	case len(result.Errors) > 0:
		status = domain.RunPartial
	}

	metrics.SyncRunsTotal.WithLabelValues(string(result.Entity), string(status)).Inc()

	if runID == "" {
		return
	}
	err := e.store.CompleteSyncRun(ctx, runID, &domain.SyncRun{
		Entity:       result.Entity,
		Status:       status,
		TotalFetched: result.TotalFetched,
		NewCount:     result.NewCount,
		UpdatedCount: result.UpdatedCount,
		ErrorCount:   len(result.Errors),
		ErrorText:    errText,
	})
	if err != nil {
		e.log.Warn("completing sync run failed", "run_id", runID, "error", err)
	}
}

// isFatal reports whether err must abort the whole invocation: missing
// configuration, or a credential exchange rejected after the single retry.
func isFatal(err error) bool {
	if errors.Is(err, provider.ErrMissingCredentials) {
		return true
	}
	var authErr *provider.AuthError
	return errors.As(err, &authErr)
}

// fetchPosition extracts a stable identifier for a failed fetch so it can be
// keyed in the error list.
func fetchPosition(err error) string {
	var fe *provider.FetchError
	if errors.As(err, &fe) {
		if fe.CategoryID != "" {
			return fmt.Sprintf("category:%s offset:%d", fe.CategoryID, fe.Offset)
		}
		return fmt.Sprintf("offset:%d", fe.Offset)
	}
	return "fetch"
}
