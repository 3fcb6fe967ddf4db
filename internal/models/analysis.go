package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleScore pairs a rule id with the relevance/compliance score it
// produced within one evaluation, for the persisted applicable_rules list.
type RuleScore struct {
	RuleID string  `json:"rule_id"`
	Score  float64 `json:"score"`
}

// ComplianceAnalysis is the persisted result of one transaction's
// evaluation. At most one exists per Transaction.
type ComplianceAnalysis struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`

	ComplianceScore float64  `json:"compliance_score"`
	RiskBand        RiskBand `json:"risk_band"`

	ApplicableRules []RuleScore     `json:"applicable_rules"`
	EvidenceMap     map[string]EvidenceMap `json:"evidence_map"`
	ControlResults  []ControlResult `json:"control_results"`
	PatternScores   PatternScores   `json:"pattern_scores"`
	BayesianSummary float64         `json:"bayesian_summary"`

	AnalystSummary string `json:"analyst_summary"`

	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	CreatedAt             time.Time `json:"created_at"`
}

// BayesianSummaryScalar reduces a Posterior to the single scalar persisted
// as ComplianceAnalysis.bayesian_summary: the expected risk weighted by
// class severity, on the same 0-100 scale as the final score.
func BayesianSummaryScalar(p Posterior) float64 {
	return 100 * (0.1*p.Low() + 0.4*p.Medium() + 0.7*p.High() + 0.95*p.Critical())
}
