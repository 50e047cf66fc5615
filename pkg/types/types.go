// Package domain defines the core business types for catalog-sync.
package domain

import (
	"time"
)

// EntityKind identifies a catalog entity type pulled from the provider.
type EntityKind string

// Entity kind constants.
const (
	EntityProduct   EntityKind = "product"
	EntityCategory  EntityKind = "category"
	EntityTrademark EntityKind = "trademark"
)

// Product is a locally persisted catalog product keyed by the provider's
// stable external identifier.
type Product struct {
	ID         string `json:"id"          db:"id"`
	ExternalID string `json:"external_id" db:"external_id"`
	Name       string `json:"name"        db:"name"`
	Code       string `json:"code"        db:"code"`

	Price    float64 `json:"price"               db:"price"`
	Currency string  `json:"currency"            db:"currency"`
	ImageURL string  `json:"image_url,omitempty" db:"image_url"`

	ProductType         string `json:"product_type"                    db:"product_type"`
	CategoryExternalID  string `json:"category_external_id"            db:"category_external_id"`
	TrademarkExternalID string `json:"trademark_external_id,omitempty" db:"trademark_external_id"`

	SyncedAt  time.Time `json:"synced_at"  db:"synced_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Category is a locally persisted product category. ParentExternalID is
// empty for root categories.
type Category struct {
	ID               string `json:"id"          db:"id"`
	ExternalID       string `json:"external_id" db:"external_id"`
	Name             string `json:"name"        db:"name"`
	ParentExternalID string `json:"parent_external_id,omitempty" db:"parent_external_id"`

	SyncedAt  time.Time `json:"synced_at"  db:"synced_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trademark is a locally persisted brand record.
type Trademark struct {
	ID         string `json:"id"          db:"id"`
	ExternalID string `json:"external_id" db:"external_id"`
	Name       string `json:"name"        db:"name"`

	SyncedAt  time.Time `json:"synced_at"  db:"synced_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecordError captures one record's failure during a sync run. Failures are
// accumulated, never raised, so a run over thousands of records survives a
// handful of bad ones.
type RecordError struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// SyncResult is the audit trail of a single entity sync invocation. It is
// returned to the caller and recorded in sync_runs, but never written into
// the catalog tables themselves.
type SyncResult struct {
	Entity       EntityKind    `json:"entity"`
	TotalFetched int           `json:"total_fetched"`
	NewCount     int           `json:"new_count"`
	UpdatedCount int           `json:"updated_count"`
	SkippedCount int           `json:"skipped_count"`
	BeforeCount  int           `json:"before_count"`
	AfterCount   int           `json:"after_count"`
	RemovedIDs   []string      `json:"removed_ids,omitempty"`
	Errors       []RecordError `json:"errors,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Success reports whether the run completed without any per-record errors.
func (r *SyncResult) Success() bool {
	return len(r.Errors) == 0
}

// AddError appends a per-record failure to the result.
func (r *SyncResult) AddError(externalID string, err error) {
	r.Errors = append(r.Errors, RecordError{
		ExternalID: externalID,
		Message:    err.Error(),
	})
}

// SyncReport aggregates the results of a full sync: trademarks, categories
// and products in dependency order. A nil stage result means that stage
// failed before producing one; its error is in Errors.
type SyncReport struct {
	Trademarks *SyncResult   `json:"trademarks,omitempty"`
	Categories *SyncResult   `json:"categories,omitempty"`
	Products   *SyncResult   `json:"products,omitempty"`
	Errors     []RecordError `json:"errors,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Success reports whether every stage ran and produced no errors.
func (r *SyncReport) Success() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, res := range []*SyncResult{r.Trademarks, r.Categories, r.Products} {
		if res == nil || !res.Success() {
			return false
		}
	}
	return true
}

// FlattenErrors returns all stage-level and record-level errors as one list.
func (r *SyncReport) FlattenErrors() []RecordError {
	var out []RecordError
	out = append(out, r.Errors...)
	for _, res := range []*SyncResult{r.Trademarks, r.Categories, r.Products} {
		if res != nil {
			out = append(out, res.Errors...)
		}
	}
	return out
}

// RunStatus is the terminal state of a persisted sync run.
type RunStatus string

// Run status constants.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// SyncRun is a persisted record of one sync invocation, used for run history
// and for computing the incremental cutoff of scheduled product syncs.
type SyncRun struct {
	ID           string     `json:"id"                    db:"id"`
	Entity       EntityKind `json:"entity"                db:"entity"`
	Status       RunStatus  `json:"status"                db:"status"`
	TotalFetched int        `json:"total_fetched"         db:"total_fetched"`
	NewCount     int        `json:"new_count"             db:"new_count"`
	UpdatedCount int        `json:"updated_count"         db:"updated_count"`
	ErrorCount   int        `json:"error_count"           db:"error_count"`
	ErrorText    string     `json:"error_text,omitempty"  db:"error_text"`
	StartedAt    time.Time  `json:"started_at"            db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
