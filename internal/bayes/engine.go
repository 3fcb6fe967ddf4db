// Package bayes computes the posterior risk-class distribution from a
// customer's prior rating and the evidence accumulated during evaluation.
package bayes

import (
	"github.com/enterprise/aml-compliance/internal/models"
)

var priors = map[models.RiskRating]models.Posterior{
	models.RiskRatingLow:      {0.70, 0.20, 0.08, 0.02},
	models.RiskRatingMedium:   {0.40, 0.35, 0.20, 0.05},
	models.RiskRatingHigh:     {0.15, 0.30, 0.40, 0.15},
	models.RiskRatingCritical: {0.05, 0.15, 0.40, 0.40},
}

const (
	ratioCriticalFailure = 5.0
	ratioHighFailure     = 3.0
	ratioMediumFailure   = 1.5
	ratioHighValue       = 1.5
	ratioCrossBorder     = 1.3
	ratioHighRiskCountry = 2.5
	ratioStructuring     = 4.0

	clipMin = 1e-3
	clipMax = 1e6
)

// Update is a pure function from (customer rating, control results,
// features) to a renormalized Posterior. Multiplicative likelihood ratios
// apply only to the medium/high/critical components; low absorbs the
// renormalization remainder.
func Update(rating models.RiskRating, controls []models.ControlResult, fv models.FeatureVector) models.Posterior {
	prior, ok := priors[rating]
	if !ok {
		prior = priors[models.RiskRatingMedium]
	}

	post := prior

	for _, c := range controls {
		if c.Status != models.ControlFail {
			continue
		}
		switch c.Severity {
		case models.SeverityCritical:
			applyRatio(&post, ratioCriticalFailure)
		case models.SeverityHigh:
			applyRatio(&post, ratioHighFailure)
		case models.SeverityMedium:
			applyRatio(&post, ratioMediumFailure)
		}
	}

	if fv.IsHighValue {
		applyRatio(&post, ratioHighValue)
	}
	if fv.IsCrossBorder {
		applyRatio(&post, ratioCrossBorder)
	}
	if fv.IsHighRiskCountry {
		applyRatio(&post, ratioHighRiskCountry)
	}
	if fv.PotentialStructuring {
		applyRatio(&post, ratioStructuring)
	}

	clip(&post)
	normalize(&post)
	return post
}

// applyRatio multiplies the medium/high/critical components by ratio,
// leaving low untouched until renormalization.
func applyRatio(p *models.Posterior, ratio float64) {
	p[models.ClassMedium] *= ratio
	p[models.ClassHigh] *= ratio
	p[models.ClassCritical] *= ratio
}

func clip(p *models.Posterior) {
	for i, v := range p {
		if v < clipMin {
			p[i] = clipMin
		}
		if v > clipMax {
			p[i] = clipMax
		}
	}
}

func normalize(p *models.Posterior) {
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	if sum <= 0 {
		*p = models.Posterior{0.25, 0.25, 0.25, 0.25}
		return
	}
	for i := range p {
		p[i] /= sum
	}
}
