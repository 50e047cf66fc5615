package sync_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/catalog-sync/internal/notify"
	"github.com/avelichko/catalog-sync/internal/provider"
	"github.com/avelichko/catalog-sync/internal/store"
	syncengine "github.com/avelichko/catalog-sync/internal/sync"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// memStore is an in-memory Store for engine tests, keyed by external ID.
type memStore struct {
	mu         sync.Mutex
	products   map[string]*domain.Product
	categories map[string]*domain.Category
	trademarks map[string]*domain.Trademark
	runs       map[string]*domain.SyncRun
	lastRun    *domain.SyncRun

	failUpsertID string // external ID whose insert/update fails
	runSeq       int
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[string]*domain.Product),
		categories: make(map[string]*domain.Category),
		trademarks: make(map[string]*domain.Trademark),
		runs:       make(map[string]*domain.SyncRun),
	}
}

func (m *memStore) GetProductByExternalID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) InsertProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ExternalID == m.failUpsertID {
		return errors.New("insert rejected")
	}
	m.products[p.ExternalID] = p
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, id string, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failUpsertID {
		return errors.New("update rejected")
	}
	m.products[id] = p
	return nil
}

func (m *memStore) CountProducts(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *memStore) GetCategoryByExternalID(_ context.Context, id string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) InsertCategory(_ context.Context, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ExternalID] = c
	return nil
}

func (m *memStore) UpdateCategory(_ context.Context, id string, c *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[id] = c
	return nil
}

func (m *memStore) CountCategories(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.categories), nil
}

func (m *memStore) GetTrademarkByExternalID(_ context.Context, id string) (*domain.Trademark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trademarks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *memStore) InsertTrademark(_ context.Context, t *domain.Trademark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ExternalID == m.failUpsertID {
		return errors.New("insert rejected")
	}
	m.trademarks[t.ExternalID] = t
	return nil
}

func (m *memStore) UpdateTrademark(_ context.Context, id string, t *domain.Trademark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failUpsertID {
		return errors.New("update rejected")
	}
	m.trademarks[id] = t
	return nil
}

func (m *memStore) CountTrademarks(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trademarks), nil
}

func (m *memStore) InsertSyncRun(_ context.Context, entity domain.EntityKind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runSeq++
	id := fmt.Sprintf("run-%d", m.runSeq)
	m.runs[id] = &domain.SyncRun{ID: id, Entity: entity, Status: domain.RunRunning}
	return id, nil
}

func (m *memStore) CompleteSyncRun(_ context.Context, id string, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = id
	m.runs[id] = run
	return nil
}

func (m *memStore) ListSyncRuns(context.Context, string, int) ([]domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) LastSuccessfulRun(_ context.Context, _ domain.EntityKind) (*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRun == nil {
		return nil, store.ErrNotFound
	}
	return m.lastRun, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Ping(context.Context) error    { return nil }

func (m *memStore) runFor(entity domain.EntityKind) *domain.SyncRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Entity == entity {
			return r
		}
	}
	return nil
}

// stubFetcher serves canned results per entity kind and records the options
// it was called with.
type stubFetcher struct {
	mu      sync.Mutex
	results map[domain.EntityKind]*provider.FetchResult
	errs    map[domain.EntityKind]error
	calls   map[domain.EntityKind]provider.FetchOptions
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		results: make(map[domain.EntityKind]*provider.FetchResult),
		errs:    make(map[domain.EntityKind]error),
		calls:   make(map[domain.EntityKind]provider.FetchOptions),
	}
}

func (f *stubFetcher) FetchAll(
	_ context.Context,
	entity domain.EntityKind,
	opts provider.FetchOptions,
) (*provider.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[entity] = opts
	return f.results[entity], f.errs[entity]
}

// recordingNotifier captures what the engine sends.
type recordingNotifier struct {
	mu       sync.Mutex
	reports  []*domain.SyncReport
	failures []domain.EntityKind
}

func (n *recordingNotifier) SendSyncReport(_ context.Context, r *domain.SyncReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, r)
	return nil
}

func (n *recordingNotifier) SendSyncFailure(_ context.Context, entity domain.EntityKind, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, entity)
	return nil
}

var _ notify.Notifier = (*recordingNotifier)(nil)
var _ store.Store = (*memStore)(nil)
var _ provider.CatalogFetcher = (*stubFetcher)(nil)

func records(prefix string, n int) []provider.CatalogRecord {
	recs := make([]provider.CatalogRecord, n)
	for i := range recs {
		recs[i] = provider.CatalogRecord{
			ID:   fmt.Sprintf("%s-%d", prefix, i),
			Name: fmt.Sprintf("Name %s %d", prefix, i),
		}
	}
	return recs
}

func TestEngine_SyncTrademarks(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityTrademark] = &provider.FetchResult{
		Records:       records("t", 5),
		ReportedTotal: 5,
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncTrademarks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalFetched)
	assert.Equal(t, 5, result.NewCount)
	assert.Equal(t, 0, result.UpdatedCount)
	assert.Equal(t, 0, result.BeforeCount)
	assert.Equal(t, 5, result.AfterCount)
	assert.True(t, result.Success())

	run := st.runFor(domain.EntityTrademark)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunSucceeded, run.Status)
	assert.Equal(t, 5, run.NewCount)
}

func TestEngine_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityCategory] = &provider.FetchResult{
		Records:       records("c", 4),
		ReportedTotal: 4,
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	first, err := eng.SyncCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, first.NewCount)

	second, err := eng.SyncCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewCount)
	assert.Equal(t, 4, second.UpdatedCount)
	assert.Equal(t, 4, second.BeforeCount)
	assert.Equal(t, 4, second.AfterCount)
}

func TestEngine_RecordFailureDoesNotStopRun(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	st.failUpsertID = "p-5"

	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{
		Records:       records("p", 10),
		ReportedTotal: 10,
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncProducts(context.Background(), nil)
	require.NoError(t, err, "one bad record must not fail the run")

	assert.Equal(t, 10, result.TotalFetched)
	assert.Equal(t, 9, result.NewCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "p-5", result.Errors[0].ExternalID)
	assert.Equal(t, 9, result.AfterCount)

	run := st.runFor(domain.EntityProduct)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunPartial, run.Status)
	assert.Equal(t, 1, run.ErrorCount)
}

func TestEngine_SkipsRecordsWithoutIdentifier(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{
		Records: []provider.CatalogRecord{
			{ID: "p-1", Name: "Good"},
			{ID: "", Name: "No identifier"},
			{ID: "p-2", Name: "Also good"},
		},
		ReportedTotal: 3,
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncProducts(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.True(t, result.Success(), "skips are not errors")
}

func TestEngine_DuplicateIdentifiersReported(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityTrademark] = &provider.FetchResult{
		Records: []provider.CatalogRecord{
			{ID: "t-1", Name: "First"},
			{ID: "t-1", Name: "Again"},
		},
		ReportedTotal: 2,
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncTrademarks(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "t-1", result.Errors[0].ExternalID)
	assert.Contains(t, result.Errors[0].Message, "duplicate")
}

func TestEngine_FatalAuthErrorAborts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"missing credentials", provider.ErrMissingCredentials},
		{
			"rejected exchange",
			&provider.FetchError{
				Entity: domain.EntityProduct,
				Err:    &provider.AuthError{StatusCode: 401, Detail: "invalid_client"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := newMemStore()
			fetcher := newStubFetcher()
			fetcher.errs[domain.EntityProduct] = tt.err

			eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

			_, err := eng.SyncProducts(context.Background(), nil)
			require.Error(t, err)

			run := st.runFor(domain.EntityProduct)
			require.NotNil(t, run)
			assert.Equal(t, domain.RunFailed, run.Status)
		})
	}
}

func TestEngine_PartialFetchStillMerges(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	// Fetch failed mid-way but three records already arrived.
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{
		Records: records("p", 3),
	}
	fetcher.errs[domain.EntityProduct] = &provider.FetchError{
		Entity:     domain.EntityProduct,
		Offset:     300,
		CategoryID: "c-9",
		Err:        errors.New("bad gateway"),
	}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncProducts(context.Background(), nil)
	require.NoError(t, err, "non-auth fetch failures degrade to partial runs")

	assert.Equal(t, 3, result.NewCount)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "category:c-9 offset:300", result.Errors[0].ExternalID)

	run := st.runFor(domain.EntityProduct)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunPartial, run.Status)
}

func TestEngine_ProductCategoriesPassedToFetcher(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{}

	eng := syncengine.NewEngine(
		st, fetcher, &notify.NoOpNotifier{},
		syncengine.WithProductCategories([]string{"Beverages", "Snacks"}),
	)

	_, err := eng.SyncProducts(context.Background(), nil)
	require.NoError(t, err)

	opts := fetcher.calls[domain.EntityProduct]
	assert.Equal(t, []string{"Beverages", "Snacks"}, opts.CategoryNames)
}

func TestEngine_IncrementalUsesLastSuccessfulRun(t *testing.T) {
	t.Parallel()

	lastStart := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

	st := newMemStore()
	st.lastRun = &domain.SyncRun{
		Entity:    domain.EntityProduct,
		Status:    domain.RunSucceeded,
		StartedAt: lastStart,
	}

	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	_, err := eng.SyncProductsIncremental(context.Background())
	require.NoError(t, err)

	opts := fetcher.calls[domain.EntityProduct]
	require.NotNil(t, opts.ModifiedSince)
	assert.Equal(t, lastStart, *opts.ModifiedSince)
}

func TestEngine_IncrementalFullPullOnFirstRun(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{}

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	_, err := eng.SyncProductsIncremental(context.Background())
	require.NoError(t, err)

	opts := fetcher.calls[domain.EntityProduct]
	assert.Nil(t, opts.ModifiedSince, "no prior run means an unbounded pull")
}

func TestEngine_FullSyncRunsStagesInOrder(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityTrademark] = &provider.FetchResult{Records: records("t", 2)}
	fetcher.results[domain.EntityCategory] = &provider.FetchResult{Records: records("c", 3)}
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{Records: records("p", 4)}

	notifier := &recordingNotifier{}
	eng := syncengine.NewEngine(st, fetcher, notifier)

	report, err := eng.FullSync(context.Background())
	require.NoError(t, err)

	require.NotNil(t, report.Trademarks)
	require.NotNil(t, report.Categories)
	require.NotNil(t, report.Products)
	assert.Equal(t, 2, report.Trademarks.NewCount)
	assert.Equal(t, 3, report.Categories.NewCount)
	assert.Equal(t, 4, report.Products.NewCount)
	assert.True(t, report.Success())

	require.Len(t, notifier.reports, 1)
	assert.Empty(t, notifier.failures)
}

func TestEngine_FullSyncStageFailureIsContained(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	// Trademark stage dies on a rejected credential exchange; the later
	// stages must still run.
	fetcher.errs[domain.EntityTrademark] = &provider.FetchError{
		Entity: domain.EntityTrademark,
		Err:    &provider.AuthError{StatusCode: 401, Detail: "invalid_client"},
	}
	fetcher.results[domain.EntityCategory] = &provider.FetchResult{Records: records("c", 2)}
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{Records: records("p", 2)}

	notifier := &recordingNotifier{}
	eng := syncengine.NewEngine(st, fetcher, notifier)

	report, err := eng.FullSync(context.Background())
	require.NoError(t, err)

	assert.Nil(t, report.Trademarks)
	require.NotNil(t, report.Categories)
	require.NotNil(t, report.Products)
	assert.Equal(t, 2, report.Categories.NewCount)
	assert.Equal(t, 2, report.Products.NewCount)

	assert.False(t, report.Success())
	require.Len(t, report.Errors, 1)
	assert.Equal(t, string(domain.EntityTrademark), report.Errors[0].ExternalID)

	require.Len(t, notifier.failures, 1)
	assert.Equal(t, domain.EntityTrademark, notifier.failures[0])
	require.Len(t, notifier.reports, 1)
}

func TestEngine_CancelledContextStopsMerging(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	fetcher := newStubFetcher()
	fetcher.results[domain.EntityProduct] = &provider.FetchResult{
		Records: records("p", 100),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := syncengine.NewEngine(st, fetcher, &notify.NoOpNotifier{})

	result, err := eng.SyncProducts(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewCount)
	require.NotEmpty(t, result.Errors)
}
