package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// FullSyncResponse mirrors the full sync endpoint body.
type FullSyncResponse struct {
	Success bool               `json:"success"`
	Report  *domain.SyncReport `json:"report"`
}

// EntitySyncResponse mirrors the single-entity sync endpoint body.
type EntitySyncResponse struct {
	Success bool               `json:"success"`
	Result  *domain.SyncResult `json:"result"`
}

// QuotaResponse mirrors the quota endpoint body.
type QuotaResponse struct {
	Ceiling   int       `json:"ceiling"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RunsResponse mirrors the runs endpoint body.
type RunsResponse struct {
	Runs []domain.SyncRun `json:"runs"`
}

// FullSync triggers a full catalog sync.
func (c *Client) FullSync(ctx context.Context) (*FullSyncResponse, error) {
	var resp FullSyncResponse
	if err := c.post(ctx, "/api/v1/sync", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncEntity triggers a single-entity sync. For products, since (YYYY-MM-DD)
// optionally bounds the run to recently modified records.
func (c *Client) SyncEntity(ctx context.Context, entity, since string) (*EntitySyncResponse, error) {
	path := "/api/v1/sync/" + entity
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	var resp EntitySyncResponse
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRuns returns recent sync runs, optionally filtered by entity.
func (c *Client) ListRuns(ctx context.Context, entity string, limit int) ([]domain.SyncRun, error) {
	path := fmt.Sprintf("/api/v1/sync/runs?limit=%d", limit)
	if entity != "" {
		path += "&entity=" + url.QueryEscape(entity)
	}

	var resp RunsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// GetQuota returns the provider request budget status.
func (c *Client) GetQuota(ctx context.Context) (*QuotaResponse, error) {
	var resp QuotaResponse
	if err := c.get(ctx, "/api/v1/quota", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
