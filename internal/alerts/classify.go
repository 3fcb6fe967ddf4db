// Package alerts implements the deterministic AlertClassifier and
// RemediationOrchestrator stages.
package alerts

import (
	"strconv"
	"time"

	"github.com/enterprise/aml-compliance/internal/models"
)

// Input bundles everything the classifier and remediation orchestrator
// need; it is the read-only slice of evaluation state those two stages
// consume.
type Input struct {
	Transaction   models.Transaction
	Risk          models.RiskAssessment
	Patterns      models.PatternScores
	Features      models.FeatureVector
	ControlResults []models.ControlResult
	EvidenceMaps  map[string]models.EvidenceMap
}

// Classify is the priority-ordered decision table of §4.9. First match
// wins per class; matches across classes each produce an alert.
func Classify(in Input, now time.Time) []models.Alert {
	score := in.Risk.Score
	pattern := effectivePatterns(in)

	var types []models.AlertType

	// Legal class, priority 1.
	if in.Transaction.SanctionsHit() {
		types = append(types, models.AlertSanctionsBreach)
	} else if in.Transaction.PEPIndicator && score >= 70 {
		types = append(types, models.AlertPEPHighRisk)
	} else if hasCriticalFailure(in.ControlResults) && score >= 80 {
		types = append(types, models.AlertCriticalRuleBreach)
	}

	legalMatched := len(types) > 0
	if score < 30 && !legalMatched {
		return nil
	}

	// Compliance class, priority 2.
	if pattern.Structuring >= 70 {
		types = append(types, models.AlertStructuringPattern)
	} else if pattern.Layering >= 70 || pattern.RapidMovement >= 70 {
		types = append(types, models.AlertLayeringPattern)
	} else if pattern.VelocityAnomaly >= 70 {
		types = append(types, models.AlertVelocityAnomaly)
	} else if in.Features.IsHighRiskCountry && score >= 50 {
		types = append(types, models.AlertHighRiskJurisdiction)
	} else if countHighSeverityFailures(in.ControlResults) >= 2 && score >= 60 {
		types = append(types, models.AlertMultipleControlFailures)
	} else if score >= 70 {
		types = append(types, models.AlertHighRiskTransaction)
	} else if score >= 50 {
		types = append(types, models.AlertMediumRiskTransaction)
	}

	// Front class, priority 3.
	if hasMissingEvidence(in.EvidenceMaps) && score >= 30 {
		types = append(types, models.AlertMissingDocumentation)
	} else if in.Features.IsHighValue && score < 50 {
		types = append(types, models.AlertHighValueTransaction)
	} else if in.Features.IsCrossBorder && score >= 40 {
		types = append(types, models.AlertCrossBorderTransaction)
	} else if score >= 30 {
		types = append(types, models.AlertDocumentationReview)
	} else {
		types = append(types, models.AlertRoutineMonitoring)
	}

	out := make([]models.Alert, 0, len(types))
	for i, t := range types {
		out = append(out, buildAlert(in, t, score, i, now))
	}
	return out
}

func buildAlert(in Input, t models.AlertType, score float64, ordinal int, now time.Time) models.Alert {
	sev := severityForAlert(t, score)
	sla := models.SLAFor(sev)
	return models.Alert{
		ID:            in.Transaction.ID.String() + "-" + strconv.Itoa(ordinal),
		TransactionID: in.Transaction.ID,
		Role:          roleFor[t],
		AlertType:     t,
		Severity:      sev,
		Title:         string(t),
		Description:   descriptionFor(t, in),
		Context: models.JSONB{
			"score": score,
			"band":  string(in.Risk.Band),
		},
		Evidence:            evidenceFor(in),
		RemediationWorkflow: remediationCatalog[t],
		CreatedAt:           now,
		SLADeadline:         now.Add(sla),
		Status:              models.AlertStatusPending,
	}
}

func descriptionFor(t models.AlertType, in Input) string {
	switch t {
	case models.AlertSanctionsBreach:
		return "Sanctions screening returned a hit for this transaction."
	case models.AlertPEPHighRisk:
		return "Transaction involves a politically exposed person at elevated risk score."
	default:
		return "Generated from compliance evaluation of transaction " + in.Transaction.BusinessID
	}
}

func evidenceFor(in Input) models.JSONB {
	missing := []string{}
	for _, m := range in.EvidenceMaps {
		missing = append(missing, m.Missing...)
	}
	return models.JSONB{"missing_fields": missing}
}

func hasCriticalFailure(controls []models.ControlResult) bool {
	for _, c := range controls {
		if c.Status == models.ControlFail && c.Severity == models.SeverityCritical {
			return true
		}
	}
	return false
}

func countHighSeverityFailures(controls []models.ControlResult) int {
	n := 0
	for _, c := range controls {
		if c.Status == models.ControlFail && c.Severity == models.SeverityHigh {
			n++
		}
	}
	return n
}

func hasMissingEvidence(maps map[string]models.EvidenceMap) bool {
	for _, m := range maps {
		if m.HasMissing() {
			return true
		}
	}
	return false
}

// effectivePatterns returns in.Patterns unchanged, unless all five scores
// are zero, in which case it falls back to feature-derived estimates at
// half the §4.6 thresholds, per §4.9's fallback rule.
func effectivePatterns(in Input) models.PatternScores {
	if !in.Patterns.IsZero() {
		return in.Patterns
	}
	p := models.PatternScores{}
	if in.Features.PotentialStructuring {
		p.Structuring = 35
	}
	if in.Features.IsCrossBorder && in.Features.Count24h > 2 {
		p.Layering = 35
	}
	if in.Features.Count24h >= 5 {
		p.VelocityAnomaly = 40
	}
	return p
}
