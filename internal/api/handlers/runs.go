package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/avelichko/catalog-sync/internal/store"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// RunsHandler serves the persisted sync run history.
type RunsHandler struct {
	store store.Store
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(s store.Store) *RunsHandler {
	return &RunsHandler{store: s}
}

// ListRunsInput filters the run history.
type ListRunsInput struct {
	Entity string `query:"entity" enum:"product,category,trademark," doc:"Filter by entity kind"`
	Limit  int    `query:"limit"  default:"20" minimum:"1" maximum:"200" doc:"Maximum runs to return"`
}

// ListRunsOutput is the response body for the runs endpoint.
type ListRunsOutput struct {
	Body struct {
		Runs []domain.SyncRun `json:"runs"`
	}
}

// ListRuns returns recent sync runs, newest first.
func (h *RunsHandler) ListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	runs, err := h.store.ListSyncRuns(ctx, input.Entity, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sync runs: " + err.Error())
	}

	resp := &ListRunsOutput{}
	resp.Body.Runs = runs
	return resp, nil
}

// RegisterRunsRoutes registers the run history endpoint with the Huma API.
func RegisterRunsRoutes(api huma.API, h *RunsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sync-runs",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/runs",
		Summary:     "List recent sync runs",
		Tags:        []string{"sync"},
	}, h.ListRuns)
}
