package alerts

import "github.com/enterprise/aml-compliance/internal/models"

var severityFor = map[models.AlertType]models.AlertSeverity{
	models.AlertSanctionsBreach:         models.AlertSeverityCritical,
	models.AlertPEPHighRisk:             models.AlertSeverityHigh,
	models.AlertCriticalRuleBreach:      models.AlertSeverityHigh,
	models.AlertLayeringPattern:         models.AlertSeverityHigh,
	models.AlertStructuringPattern:      models.AlertSeverityHigh,
	models.AlertHighRiskJurisdiction:    models.AlertSeverityHigh,
	models.AlertMultipleControlFailures: models.AlertSeverityHigh,
	// velocity_anomaly, high_risk_transaction, missing_documentation are
	// resolved dynamically in severityForAlert (risk >= 60 -> High,
	// else Medium).
	models.AlertCrossBorderTransaction: models.AlertSeverityMedium,
	models.AlertMediumRiskTransaction:  models.AlertSeverityMedium,
	models.AlertHighValueTransaction:   models.AlertSeverityMedium,
	models.AlertDocumentationReview:    models.AlertSeverityLow,
	models.AlertRoutineMonitoring:      models.AlertSeverityLow,
}

// riskSensitiveHigh is the set of alert types whose severity is High when
// score >= 60 and Medium otherwise.
var riskSensitiveHigh = map[models.AlertType]bool{
	models.AlertVelocityAnomaly:      true,
	models.AlertHighRiskTransaction:  true,
	models.AlertMissingDocumentation: true,
}

func severityForAlert(t models.AlertType, score float64) models.AlertSeverity {
	if riskSensitiveHigh[t] {
		if score >= 60 {
			return models.AlertSeverityHigh
		}
		return models.AlertSeverityMedium
	}
	return severityFor[t]
}

// remediationCatalog is the fixed 6-9 step workflow per alert type.
var remediationCatalog = map[models.AlertType][]string{
	models.AlertSanctionsBreach: {
		"1. Freeze the transaction immediately and block settlement",
		"2. Notify the sanctions compliance officer",
		"3. File a blocked/rejected transaction report per OFAC/local regulator rules",
		"4. Escalate to Legal for regulatory filing",
		"5. Screen all linked accounts and counterparties",
		"6. Retain all evidence and screening logs",
		"7. Notify senior management within 24 hours",
		"8. Close the loop with a written disposition memo",
	},
	models.AlertPEPHighRisk: {
		"1. Route to Legal for enhanced due diligence review",
		"2. Verify source of funds and source of wealth documentation",
		"3. Confirm PEP classification and relationship mapping",
		"4. Assess ongoing monitoring frequency uplift",
		"5. Obtain senior management sign-off to proceed",
		"6. Document the EDD rationale and decision",
	},
	models.AlertCriticalRuleBreach: {
		"1. Escalate to Legal for immediate review",
		"2. Suspend further processing pending review",
		"3. Re-validate the control test inputs and rationale",
		"4. Determine SAR filing obligation",
		"5. Document the breach and remediation taken",
		"6. Notify the compliance officer of record",
	},
	models.AlertStructuringPattern: {
		"1. Flag for SAR filing consideration",
		"2. Analyze linked accounts for coordinated structuring",
		"3. Review the customer's transaction history for the past 90 days",
		"4. Confirm whether amounts cluster near reporting thresholds",
		"5. Interview relationship manager for context, if available",
		"6. Document findings in the case file",
		"7. Determine enhanced monitoring requirement",
		"8. Close or escalate per compliance officer review",
	},
	models.AlertLayeringPattern: {
		"1. Map the full transaction chain across linked accounts",
		"2. Identify all cross-border legs and intermediary jurisdictions",
		"3. Assess whether the pattern matches known layering typologies",
		"4. Request supporting documentation for each leg",
		"5. Escalate to Compliance lead if chain exceeds 3 hops",
		"6. Document the layering assessment",
	},
	models.AlertVelocityAnomaly: {
		"1. Review transaction velocity against customer baseline",
		"2. Confirm the customer's expected activity profile",
		"3. Contact relationship manager for business rationale",
		"4. Apply enhanced monitoring if velocity remains elevated",
		"5. Document the velocity review outcome",
		"6. Close or escalate per compliance officer review",
	},
	models.AlertHighRiskJurisdiction: {
		"1. Confirm the counterparty jurisdiction against the current high-risk list",
		"2. Apply enhanced due diligence for the corridor",
		"3. Review sanctions and PEP screening results",
		"4. Assess business rationale for the corridor",
		"5. Document the jurisdiction risk review",
		"6. Determine ongoing monitoring frequency",
	},
	models.AlertMultipleControlFailures: {
		"1. Review each failed control individually",
		"2. Identify common root causes across failures",
		"3. Assess cumulative risk beyond any single control",
		"4. Escalate to Compliance lead for disposition",
		"5. Document remediation for each control failure",
		"6. Determine SAR filing obligation",
	},
	models.AlertHighRiskTransaction: {
		"1. Review the full compliance analysis for the transaction",
		"2. Confirm all applicable controls were tested",
		"3. Assess whether additional documentation is required",
		"4. Determine enhanced due diligence requirement",
		"5. Document the risk review outcome",
		"6. Close or escalate per compliance officer review",
	},
	models.AlertMediumRiskTransaction: {
		"1. Review the compliance analysis summary",
		"2. Confirm no missing evidence remains outstanding",
		"3. Apply standard monitoring",
		"4. Document the review outcome",
		"5. Close the alert if no further action is warranted",
		"6. Escalate if new evidence emerges",
	},
	models.AlertMissingDocumentation: {
		"1. Identify all missing evidence fields",
		"2. Request the missing documentation from the front office",
		"3. Set a follow-up reminder ahead of the SLA deadline",
		"4. Escalate to Compliance if documentation is not received in time",
		"5. Re-run the control test once documentation is received",
		"6. Document the resolution",
	},
	models.AlertHighValueTransaction: {
		"1. Confirm the transaction amount and currency",
		"2. Verify supporting documentation for the transaction purpose",
		"3. Apply standard high-value transaction monitoring",
		"4. Document the review outcome",
		"5. Close the alert if no further action is warranted",
		"6. Escalate if risk indicators emerge",
	},
	models.AlertCrossBorderTransaction: {
		"1. Confirm originator and beneficiary jurisdictions",
		"2. Verify travel-rule completeness",
		"3. Apply standard cross-border monitoring",
		"4. Document the review outcome",
		"5. Close the alert if no further action is warranted",
		"6. Escalate if risk indicators emerge",
	},
	models.AlertDocumentationReview: {
		"1. Review the transaction's supporting documentation",
		"2. Confirm completeness against the expected evidence list",
		"3. Document the review outcome",
		"4. Close the alert if no further action is warranted",
		"5. Escalate if documentation is incomplete",
		"6. File any missing documentation request",
	},
	models.AlertRoutineMonitoring: {
		"1. Log the transaction for routine monitoring",
		"2. No further action required unless flagged by a future review",
		"3. Include in periodic monitoring reporting",
		"4. Close the alert",
		"5. Retain for audit trail purposes",
		"6. Escalate only if subsequent activity raises risk",
	},
}

var roleFor = map[models.AlertType]models.AlertRole{
	models.AlertSanctionsBreach:         models.RoleLegal,
	models.AlertPEPHighRisk:             models.RoleLegal,
	models.AlertCriticalRuleBreach:      models.RoleLegal,
	models.AlertStructuringPattern:      models.RoleCompliance,
	models.AlertLayeringPattern:         models.RoleCompliance,
	models.AlertVelocityAnomaly:         models.RoleCompliance,
	models.AlertHighRiskJurisdiction:    models.RoleCompliance,
	models.AlertMultipleControlFailures: models.RoleCompliance,
	models.AlertHighRiskTransaction:     models.RoleCompliance,
	models.AlertMediumRiskTransaction:   models.RoleCompliance,
	models.AlertMissingDocumentation:    models.RoleFront,
	models.AlertHighValueTransaction:    models.RoleFront,
	models.AlertCrossBorderTransaction:  models.RoleFront,
	models.AlertDocumentationReview:     models.RoleFront,
	models.AlertRoutineMonitoring:       models.RoleFront,
}
