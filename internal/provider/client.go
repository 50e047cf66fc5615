// Package provider implements the client side of the external catalog
// provider: credential exchange, request budgeting, paginated catalog reads
// and category hierarchy resolution, all abstracted behind interfaces for
// testability.
package provider

import (
	"context"
	"time"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// PageRequest defines the parameters for one catalog page read.
type PageRequest struct {
	Offset        int
	PageSize      int
	ModifiedSince *time.Time
	CategoryID    string
}

// PageResult holds one page of catalog records plus the provider-reported
// total and any identifiers the provider marked removed.
type PageResult struct {
	Total      int
	Records    []CatalogRecord
	RemovedIDs []string
}

// FetchOptions bounds a full multi-page fetch.
type FetchOptions struct {
	ModifiedSince *time.Time
	// CategoryNames restricts the fetch to the named categories and all of
	// their descendants. Empty means unfiltered.
	CategoryNames []string
}

// FetchResult is the merged, de-duplicated outcome of a full fetch.
type FetchResult struct {
	Records    []CatalogRecord
	RemovedIDs []string
	// ReportedTotal is the provider's unfiltered total from the first page.
	ReportedTotal int
	PagesFetched  int
}

// CatalogClient issues single authenticated page reads against the provider.
type CatalogClient interface {
	FetchPage(ctx context.Context, entity domain.EntityKind, req PageRequest) (*PageResult, error)
}

// CatalogFetcher drives CatalogClient across pages and categories.
type CatalogFetcher interface {
	FetchAll(ctx context.Context, entity domain.EntityKind, opts FetchOptions) (*FetchResult, error)
}

// TokenProvider obtains machine-to-machine bearer tokens. Invalidate drops
// any cached token so the next Token call performs a fresh exchange; it is
// the hook for the single retry after a mid-run 401.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// DescendantResolver expands root category identifiers into the full set of
// transitively reachable category IDs.
type DescendantResolver interface {
	ResolveNames(ctx context.Context, names []string) ([]string, error)
	ResolveDescendants(ctx context.Context, rootIDs []string) []string
}
