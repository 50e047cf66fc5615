package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avelichko/catalog-sync/internal/metrics"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

const (
	retailerHeader = "X-Retailer-ID"

	pathProducts   = "/v1/items"
	pathCategories = "/v1/categories"
	pathTrademarks = "/v1/trademarks"
)

// dateOnly is the provider's lastModifiedFrom format.
const dateOnly = "2006-01-02"

// CatalogHTTPClient implements CatalogClient against the provider's REST API.
// Every FetchPage call acquires a governor slot and a valid token first; a
// single 401 mid-run invalidates the cached token and retries exactly once.
type CatalogHTTPClient struct {
	tokens     TokenProvider
	governor   *RateGovernor
	baseURL    string
	retailerID string
	client     *http.Client
}

// CatalogOption configures the CatalogHTTPClient.
type CatalogOption func(*CatalogHTTPClient)

// WithCatalogHTTPClient overrides the default HTTP client.
func WithCatalogHTTPClient(hc *http.Client) CatalogOption {
	return func(c *CatalogHTTPClient) {
		c.client = hc
	}
}

// NewCatalogHTTPClient creates a provider API client.
func NewCatalogHTTPClient(
	tokens TokenProvider,
	governor *RateGovernor,
	baseURL, retailerID string,
	opts ...CatalogOption,
) *CatalogHTTPClient {
	c := &CatalogHTTPClient{
		tokens:     tokens,
		governor:   governor,
		baseURL:    baseURL,
		retailerID: retailerID,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage reads one page of catalog records for the given entity kind.
func (c *CatalogHTTPClient) FetchPage(
	ctx context.Context,
	entity domain.EntityKind,
	req PageRequest,
) (*PageResult, error) {
	body, err := c.get(ctx, c.buildURL(entity, req))
	if err != nil {
		return nil, &FetchError{
			Entity:     entity,
			Offset:     req.Offset,
			CategoryID: req.CategoryID,
			Err:        err,
		}
	}

	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{
			Entity:     entity,
			Offset:     req.Offset,
			CategoryID: req.CategoryID,
			Err:        fmt.Errorf("parsing page response: %w", err),
		}
	}

	return &PageResult{
		Total:      env.Total,
		Records:    env.Data,
		RemovedIDs: env.RemoveID,
	}, nil
}

// FetchCategoryTree reads the full category forest. Hierarchical when
// nested is true, flat (parent pointers only) otherwise.
func (c *CatalogHTTPClient) FetchCategoryTree(
	ctx context.Context,
	nested bool,
) ([]CategoryNode, error) {
	params := url.Values{}
	params.Set("hierarchicalData", strconv.FormatBool(nested))

	body, err := c.get(ctx, c.baseURL+pathCategories+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching category tree: %w", err)
	}

	var env categoriesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing category tree: %w", err)
	}

	return env.Data, nil
}

// get performs one governed, authenticated GET with the single 401 retry.
func (c *CatalogHTTPClient) get(ctx context.Context, u string) ([]byte, error) {
	body, err := c.doGet(ctx, u)
	if err == nil || !isAuthRejection(err) {
		return body, err
	}

	// Token rejected downstream: treat the cache as expired and retry once.
	c.tokens.Invalidate()
	metrics.ProviderAuthRetriesTotal.Inc()

	return c.doGet(ctx, u)
}

func (c *CatalogHTTPClient) doGet(ctx context.Context, u string) ([]byte, error) {
	if err := c.governor.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate governor: %w", err)
	}
	metrics.ProviderRequestsTotal.Inc()
	metrics.ProviderQuotaUsed.Set(float64(c.governor.Used()))

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting auth token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(retailerHeader, c.retailerID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	return body, nil
}

func (c *CatalogHTTPClient) buildURL(entity domain.EntityKind, req PageRequest) string {
	var path string
	switch entity {
	case domain.EntityCategory:
		path = pathCategories
	case domain.EntityTrademark:
		path = pathTrademarks
	default:
		path = pathProducts
	}

	params := url.Values{}
	params.Set("currentItem", strconv.Itoa(req.Offset))
	params.Set("pageSize", strconv.Itoa(req.PageSize))

	if req.CategoryID != "" {
		params.Set("categoryId", req.CategoryID)
	}

	if req.ModifiedSince != nil {
		params.Set("lastModifiedFrom", req.ModifiedSince.Format(dateOnly))
	}

	if entity == domain.EntityProduct {
		params.Set("includeRemoveIds", "true")
		params.Set("includeInventory", "false")
	}

	return c.baseURL + path + "?" + params.Encode()
}
