package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/avelichko/catalog-sync/internal/provider"
)

// QuotaHandler provides the provider request budget status endpoint.
type QuotaHandler struct {
	governor *provider.RateGovernor
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(g *provider.RateGovernor) *QuotaHandler {
	return &QuotaHandler{governor: g}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		Ceiling   int       `json:"ceiling"   example:"4900"                 doc:"Configured request ceiling per window"`
		Used      int       `json:"used"      example:"142"                  doc:"Requests consumed in the current window"`
		Remaining int       `json:"remaining" example:"4758"                 doc:"Requests remaining in the current window"`
		ResetAt   time.Time `json:"reset_at"  example:"2026-08-31T14:30:00Z" doc:"When the current window expires"`
	}
}

// GetQuota returns the current provider request budget status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.governor == nil {
		return resp, nil
	}

	resp.Body.Ceiling = h.governor.Ceiling()
	resp.Body.Used = h.governor.Used()
	resp.Body.Remaining = h.governor.Remaining()
	resp.Body.ResetAt = h.governor.ResetAt()

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get provider request budget status",
		Description: "Returns the requests consumed and remaining in the current rate window.",
		Tags:        []string{"provider"},
	}, h.GetQuota)
}
