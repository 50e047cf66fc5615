package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/catalog-sync/internal/api/handlers"
	"github.com/avelichko/catalog-sync/internal/provider"
)

func TestGetQuota(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		governor *provider.RateGovernor
		preCalls int
	}{
		{
			name: "nil governor returns zeroes",
		},
		{
			name:     "fresh governor",
			governor: provider.NewRateGovernor(100, time.Hour, provider.WithSmoothing(1000, 100)),
		},
		{
			name:     "governor with usage",
			governor: provider.NewRateGovernor(100, time.Hour, provider.WithSmoothing(1000, 100)),
			preCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.governor != nil {
				for range tt.preCalls {
					require.NoError(t, tt.governor.Acquire(t.Context()))
				}
			}

			h := handlers.NewQuotaHandler(tt.governor)

			_, api := humatest.New(t)
			handlers.RegisterQuotaRoutes(api, h)

			resp := api.Get("/api/v1/quota")
			require.Equal(t, http.StatusOK, resp.Code)

			body := resp.Body.String()
			assert.Contains(t, body, `"ceiling"`)
			assert.Contains(t, body, `"used"`)
			assert.Contains(t, body, `"remaining"`)
			assert.Contains(t, body, `"reset_at"`)

			if tt.governor != nil {
				assert.Contains(t, body, `"ceiling":100`)
				if tt.preCalls > 0 {
					assert.Contains(t, body, `"used":3`)
					assert.Contains(t, body, `"remaining":97`)
				}
			}
		})
	}
}
