package dto

import (
	"github.com/propertyledger/backend/internal/application/usecase/reconciliation"
	"github.com/propertyledger/backend/internal/domain/entity"
)

// ReconcileRequest represents the request body for a reconciliation run.
type ReconcileRequest struct {
	PropertyID *string `json:"property_id,omitempty" binding:"omitempty,uuid"`
}

// KindSummaryResponse reports the all-time buckets written for one kind.
type KindSummaryResponse struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

// ReconcileResponse represents the result of a reconciliation run.
type ReconcileResponse struct {
	Kinds       map[string]KindSummaryResponse `json:"kinds"`
	Properties  int                            `json:"properties"`
	RowsRemoved int64                          `json:"rows_removed"`
	RowsWritten int                            `json:"rows_written"`
	DurationMS  int64                          `json:"duration_ms"`
}

// DriftResponse represents one bucket that changed during reconciliation.
type DriftResponse struct {
	PropertyID  string `json:"property_id"`
	Kind        string `json:"kind"`
	Granularity string `json:"granularity"`
	Year        *int   `json:"year,omitempty"`
	Month       *int   `json:"month,omitempty"`
	Incremental string `json:"incremental"`
	Reconciled  string `json:"reconciled"`
}

// DriftCheckResponse represents the result of a drift check.
type DriftCheckResponse struct {
	Drifts    []DriftResponse   `json:"drifts"`
	Reconcile ReconcileResponse `json:"reconcile"`
}

// ToReconcileResponse converts a reconciliation output to a ReconcileResponse DTO.
func ToReconcileResponse(o *reconciliation.ReconcileOutput) ReconcileResponse {
	kinds := make(map[string]KindSummaryResponse, len(o.Kinds))
	for kind, summary := range o.Kinds {
		kinds[string(kind)] = KindSummaryResponse{
			Count: summary.Count,
			Total: summary.Total.StringFixed(entity.AmountDecimals),
		}
	}
	return ReconcileResponse{
		Kinds:       kinds,
		Properties:  o.Properties,
		RowsRemoved: o.RowsRemoved,
		RowsWritten: o.RowsWritten,
		DurationMS:  o.Duration.Milliseconds(),
	}
}

// ToDriftCheckResponse converts a drift check output to a DriftCheckResponse DTO.
func ToDriftCheckResponse(o *reconciliation.DriftCheckOutput) DriftCheckResponse {
	drifts := make([]DriftResponse, len(o.Drifts))
	for i, d := range o.Drifts {
		drifts[i] = DriftResponse{
			PropertyID:  d.Key.PropertyID.String(),
			Kind:        string(d.Key.Kind),
			Granularity: string(d.Key.Granularity()),
			Year:        d.Key.Year,
			Month:       d.Key.Month,
			Incremental: d.Incremental.StringFixed(entity.AmountDecimals),
			Reconciled:  d.Reconciled.StringFixed(entity.AmountDecimals),
		}
	}
	return DriftCheckResponse{
		Drifts:    drifts,
		Reconcile: ToReconcileResponse(o.Reconcile),
	}
}
