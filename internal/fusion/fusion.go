// Package fusion combines rule verdicts, the Bayesian posterior, and
// pattern scores into a single compliance score and band.
package fusion

import (
	"github.com/enterprise/aml-compliance/internal/models"
)

var severityWeight = map[models.Severity]float64{
	models.SeverityCritical: 1.0,
	models.SeverityHigh:     0.7,
	models.SeverityMedium:   0.4,
	models.SeverityLow:      0.2,
}

const (
	weightRuleBased    = 0.40
	weightMLBased      = 0.30
	weightPatternBased = 0.30
)

// Fuse is grounded on the teacher's three-way weighted ScoringEngine
// fusion (rule/ML/behavioral), generalized to rule-based/ML-based
// (Bayesian-derived)/pattern-based legs.
func Fuse(controls []models.ControlResult, posterior models.Posterior, pattern models.PatternScores) models.RiskAssessment {
	ruleBased := ruleBasedScore(controls)
	mlBased := models.BayesianSummaryScalar(posterior)
	patternBased := pattern.Max()

	final := weightRuleBased*ruleBased + weightMLBased*mlBased + weightPatternBased*patternBased
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}

	return models.RiskAssessment{
		Score: final,
		Band:  models.BandForScore(final),
		Breakdown: models.RiskBreakdown{
			RuleBased:    ruleBased,
			MLBased:      mlBased,
			PatternBased: patternBased,
		},
	}
}

func ruleBasedScore(controls []models.ControlResult) float64 {
	if len(controls) == 0 {
		return 0
	}
	var weightedSum, totalWeight float64
	for _, c := range controls {
		w := severityWeight[c.Severity]
		weightedSum += (100 - c.ComplianceScore) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}
