package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// Syncer defines the orchestrator operations the sync endpoints trigger.
type Syncer interface {
	FullSync(ctx context.Context) (*domain.SyncReport, error)
	SyncProducts(ctx context.Context, since *time.Time) (*domain.SyncResult, error)
	SyncCategories(ctx context.Context) (*domain.SyncResult, error)
	SyncTrademarks(ctx context.Context) (*domain.SyncResult, error)
}

// SyncHandler handles manual sync trigger requests.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(s Syncer) *SyncHandler {
	return &SyncHandler{syncer: s}
}

// FullSyncOutput is the response body for the full sync endpoint.
type FullSyncOutput struct {
	Body struct {
		Success bool               `json:"success" doc:"Whether every stage completed without errors"`
		Report  *domain.SyncReport `json:"report"  doc:"Per-stage sync results"`
	}
}

// FullSync triggers a trademark, category and product sync in order.
func (h *SyncHandler) FullSync(ctx context.Context, _ *struct{}) (*FullSyncOutput, error) {
	report, err := h.syncer.FullSync(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("full sync failed: " + err.Error())
	}

	resp := &FullSyncOutput{}
	resp.Body.Success = report.Success()
	resp.Body.Report = report
	return resp, nil
}

// EntitySyncInput carries the optional incremental cutoff for product syncs.
type EntitySyncInput struct {
	Since string `query:"since" example:"2026-08-01" doc:"Only sync records modified on or after this date (products only)"`
}

// EntitySyncOutput is the response body for single-entity sync endpoints.
// A partially failed sync still returns 200: partial and fully failed runs
// are different operational signals, and the caller gets the error list
// plus the counts that did succeed.
type EntitySyncOutput struct {
	Body struct {
		Success bool               `json:"success" doc:"Whether the run completed without record errors"`
		Result  *domain.SyncResult `json:"result"  doc:"Counts and per-record errors"`
	}
}

// SyncProducts triggers a product sync, optionally incremental.
func (h *SyncHandler) SyncProducts(
	ctx context.Context,
	input *EntitySyncInput,
) (*EntitySyncOutput, error) {
	var since *time.Time
	if input.Since != "" {
		t, err := time.Parse("2006-01-02", input.Since)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid since date: " + input.Since)
		}
		since = &t
	}

	result, err := h.syncer.SyncProducts(ctx, since)
	return entityOutput(result, err)
}

// SyncCategories triggers a category sync.
func (h *SyncHandler) SyncCategories(ctx context.Context, _ *struct{}) (*EntitySyncOutput, error) {
	result, err := h.syncer.SyncCategories(ctx)
	return entityOutput(result, err)
}

// SyncTrademarks triggers a trademark sync.
func (h *SyncHandler) SyncTrademarks(ctx context.Context, _ *struct{}) (*EntitySyncOutput, error) {
	result, err := h.syncer.SyncTrademarks(ctx)
	return entityOutput(result, err)
}

func entityOutput(result *domain.SyncResult, err error) (*EntitySyncOutput, error) {
	if err != nil {
		return nil, huma.Error500InternalServerError("sync failed: " + err.Error())
	}

	resp := &EntitySyncOutput{}
	resp.Body.Success = result.Success()
	resp.Body.Result = result
	return resp, nil
}

// RegisterSyncRoutes registers the sync trigger endpoints with the Huma API.
func RegisterSyncRoutes(api huma.API, h *SyncHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "full-sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Run a full catalog sync",
		Description: "Syncs trademarks, categories and products from the provider in dependency order.",
		Tags:        []string{"sync"},
	}, h.FullSync)

	huma.Register(api, huma.Operation{
		OperationID: "sync-products",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/products",
		Summary:     "Sync products",
		Tags:        []string{"sync"},
	}, h.SyncProducts)

	huma.Register(api, huma.Operation{
		OperationID: "sync-categories",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/categories",
		Summary:     "Sync categories",
		Tags:        []string{"sync"},
	}, h.SyncCategories)

	huma.Register(api, huma.Operation{
		OperationID: "sync-trademarks",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/trademarks",
		Summary:     "Sync trademarks",
		Tags:        []string{"sync"},
	}, h.SyncTrademarks)
}
