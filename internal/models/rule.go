package models

import "time"

// RuleSource distinguishes internally authored rules from ingested
// external regulatory text.
type RuleSource string

const (
	RuleSourceInternal RuleSource = "internal"
	RuleSourceExternal RuleSource = "external"
)

// Rule is a compliance obligation retrievable by RuleStore.
type Rule struct {
	ID      string `json:"id"`
	Version int    `json:"version"`

	Source       RuleSource `json:"source"`
	Regulator    string     `json:"regulator"`
	Jurisdictions []string  `json:"jurisdictions"`

	Title string `json:"title"`
	Body  string `json:"body"`

	ApplicabilityConditions string   `json:"applicability_conditions"`
	ExpectedEvidenceFields  []string `json:"expected_evidence_fields"`

	Severity Severity `json:"severity"`

	EffectiveDate time.Time  `json:"effective_date"`
	SunsetDate    *time.Time `json:"sunset_date,omitempty"`
	IsActive      bool       `json:"is_active"`
}

// Retrievable reports whether the rule may be returned by a search at the
// given reference time (typically the transaction's booking datetime).
func (r Rule) Retrievable(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if at.Before(r.EffectiveDate) {
		return false
	}
	if r.SunsetDate != nil && !at.Before(*r.SunsetDate) {
		return false
	}
	return true
}

// RetrievedRule is an ephemeral result of a RuleStore search: a rule
// instance carrying the relevance score and the query that produced it.
type RetrievedRule struct {
	Rule  Rule    `json:"rule"`
	Score float64 `json:"score"`
	Query string  `json:"query"`
}
