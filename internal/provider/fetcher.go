package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

const (
	defaultFetchPageSize = 100
	// pageDelay is a courtesy throttle between consecutive page requests,
	// independent of the governor's hard budget.
	pageDelay = 100 * time.Millisecond
	// maxEmptyPages bounds loops against providers that report total=0
	// instead of an exact count.
	maxEmptyPages = 2
)

// BatchFetcher implements CatalogFetcher: it drives FetchPage in an
// offset-based loop, optionally once per resolved category, merging and
// de-duplicating results by external identifier.
type BatchFetcher struct {
	client   CatalogClient
	resolver DescendantResolver
	log      *slog.Logger
	pageSize int
	delay    time.Duration
}

// FetcherOption configures the BatchFetcher.
type FetcherOption func(*BatchFetcher)

// WithFetchPageSize overrides the default page size.
func WithFetchPageSize(n int) FetcherOption {
	return func(f *BatchFetcher) {
		f.pageSize = n
	}
}

// WithPageDelay overrides the courtesy delay between pages. Tests set zero.
func WithPageDelay(d time.Duration) FetcherOption {
	return func(f *BatchFetcher) {
		f.delay = d
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *BatchFetcher) {
		f.log = l
	}
}

// NewBatchFetcher creates a fetcher over the given page client and category
// resolver.
func NewBatchFetcher(
	client CatalogClient,
	resolver DescendantResolver,
	opts ...FetcherOption,
) *BatchFetcher {
	f := &BatchFetcher{
		client:   client,
		resolver: resolver,
		log:      slog.Default(),
		pageSize: defaultFetchPageSize,
		delay:    pageDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll pulls the complete record set for an entity kind. With no
// category filter it pages from offset 0 until the provider-reported total
// is exhausted. With a filter it resolves descendant category IDs and runs
// the same loop once per category, de-duplicating across categories since a
// product may be filed under more than one leaf.
func (f *BatchFetcher) FetchAll(
	ctx context.Context,
	entity domain.EntityKind,
	opts FetchOptions,
) (*FetchResult, error) {
	if len(opts.CategoryNames) == 0 {
		return f.fetchCategory(ctx, entity, opts.ModifiedSince, "")
	}

	rootIDs, err := f.resolver.ResolveNames(ctx, opts.CategoryNames)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", entity, err)
	}
	categoryIDs := f.resolver.ResolveDescendants(ctx, rootIDs)

	merged := &FetchResult{}
	seen := make(map[string]struct{})

	for _, catID := range categoryIDs {
		part, err := f.fetchCategory(ctx, entity, opts.ModifiedSince, catID)
		if err != nil {
			// One category failing is not fatal for the others; the
			// orchestrator gets the position from the FetchError.
			return merged, err
		}

		for _, rec := range part.Records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged.Records = append(merged.Records, rec)
		}
		merged.RemovedIDs = append(merged.RemovedIDs, part.RemovedIDs...)
		merged.PagesFetched += part.PagesFetched
		if merged.ReportedTotal == 0 {
			merged.ReportedTotal = part.ReportedTotal
		}
	}

	merged.RemovedIDs = dedupe(merged.RemovedIDs)
	return merged, nil
}

// fetchCategory runs the offset loop for one (possibly empty) category filter.
func (f *BatchFetcher) fetchCategory(
	ctx context.Context,
	entity domain.EntityKind,
	since *time.Time,
	categoryID string,
) (*FetchResult, error) {
	result := &FetchResult{}
	offset := 0
	emptyPages := 0

	for {
		page, err := f.client.FetchPage(ctx, entity, PageRequest{
			Offset:        offset,
			PageSize:      f.pageSize,
			ModifiedSince: since,
			CategoryID:    categoryID,
		})
		if err != nil {
			return result, err
		}

		result.PagesFetched++
		if result.ReportedTotal == 0 {
			result.ReportedTotal = page.Total
		}
		result.Records = append(result.Records, page.Records...)
		result.RemovedIDs = append(result.RemovedIDs, page.RemovedIDs...)

		if len(page.Records) == 0 {
			emptyPages++
			if emptyPages >= maxEmptyPages {
				f.log.Debug("stopping on consecutive empty pages",
					"entity", entity, "category_id", categoryID, "offset", offset)
				break
			}
		} else {
			emptyPages = 0
		}

		offset += f.pageSize
		// Some providers report total=0 regardless of content; for those
		// the empty-page guard above is the only terminator.
		if page.Total > 0 && offset >= page.Total {
			break
		}

		if f.delay > 0 {
			time.Sleep(f.delay)
		}
	}

	return result, nil
}
