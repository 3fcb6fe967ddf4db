package evaluator

import "github.com/enterprise/aml-compliance/internal/models"

// mapEvidence is purely mechanical: for each expected_evidence field name
// declared on the rule, classify it as present, missing, or contradictory
// against the transaction. Unknown field names are ignored.
func mapEvidence(rule models.Rule, tx models.Transaction) models.EvidenceMap {
	var em models.EvidenceMap
	for _, field := range rule.ExpectedEvidenceFields {
		value, nonEmpty := tx.Field(field)
		switch {
		case field == "travel_rule_complete" && !tx.TravelRuleComplete:
			em.Contradictory = append(em.Contradictory, field)
		case nonEmpty:
			em.Present = append(em.Present, field)
		case value == "" && !nonEmpty:
			if _, known := knownFields[field]; known {
				em.Missing = append(em.Missing, field)
			}
		}
	}
	return em
}

var knownFields = map[string]struct{}{
	"swift_f70_purpose":    {},
	"swift_purpose_code":   {},
	"swift_message_type":   {},
	"customer_kyc_date":    {},
	"originator_account":   {},
	"beneficiary_account":  {},
	"travel_rule_complete": {},
}
