// Package models holds the shared domain types for the compliance pipeline.
package models

import (
	"encoding/json"
)

// JSONB is a helper type for PostgreSQL JSONB columns holding arbitrary
// structured data (raw payloads, context blobs, evidence).
type JSONB map[string]interface{}

func (j JSONB) Value() ([]byte, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Pagination mirrors a listing request's offset/limit and the total count
// available, for the transaction listing endpoint.
type Pagination struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// RiskRating is the customer's standing AML risk classification, used as
// the BayesianEngine's prior selector.
type RiskRating string

const (
	RiskRatingLow      RiskRating = "low"
	RiskRatingMedium   RiskRating = "medium"
	RiskRatingHigh     RiskRating = "high"
	RiskRatingCritical RiskRating = "critical"
)

// RiskBand is the coarse bucket a compliance score maps onto.
type RiskBand string

const (
	BandLow      RiskBand = "Low"
	BandMedium   RiskBand = "Medium"
	BandHigh     RiskBand = "High"
	BandCritical RiskBand = "Critical"
)

// BandForScore applies the fixed score-to-band mapping shared by RiskFusion
// and the testable-properties boundary checks.
func BandForScore(score float64) RiskBand {
	switch {
	case score < 30:
		return BandLow
	case score < 60:
		return BandMedium
	case score < 80:
		return BandHigh
	default:
		return BandCritical
	}
}

// Severity is the penalty/severity level carried by a Rule and copied onto
// its ControlResult.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)
