package dto

import (
	"github.com/propertyledger/backend/internal/domain/entity"
)

// BalanceResponse represents the current balance of a property.
type BalanceResponse struct {
	PropertyID string `json:"property_id"`
	Balance    string `json:"balance"`
}

// RollupResponse represents one rollup bucket. Year and Month are omitted for
// the all-time and yearly levels.
type RollupResponse struct {
	Kind        string `json:"kind"`
	Granularity string `json:"granularity"`
	Year        *int   `json:"year,omitempty"`
	Month       *int   `json:"month,omitempty"`
	Value       string `json:"value"`
}

// RollupListResponse represents a rollup query result.
type RollupListResponse struct {
	PropertyID string           `json:"property_id"`
	Rollups    []RollupResponse `json:"rollups"`
}

// ToRollupResponse converts a domain RollupRecord to a RollupResponse DTO.
func ToRollupResponse(r *entity.RollupRecord) RollupResponse {
	return RollupResponse{
		Kind:        string(r.Kind),
		Granularity: string(r.Granularity()),
		Year:        r.Year,
		Month:       r.Month,
		Value:       r.Value.StringFixed(entity.AmountDecimals),
	}
}
