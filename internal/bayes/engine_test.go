package bayes

import (
	"math"
	"testing"

	"github.com/enterprise/aml-compliance/internal/models"
)

func sum(p models.Posterior) float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}

func TestUpdate_PosteriorSumsToOne(t *testing.T) {
	cases := []struct {
		name     string
		rating   models.RiskRating
		controls []models.ControlResult
		fv       models.FeatureVector
	}{
		{"no evidence", models.RiskRatingLow, nil, models.FeatureVector{}},
		{"all signals", models.RiskRatingCritical, []models.ControlResult{
			{Status: models.ControlFail, Severity: models.SeverityCritical},
			{Status: models.ControlFail, Severity: models.SeverityHigh},
		}, models.FeatureVector{IsHighValue: true, IsCrossBorder: true, IsHighRiskCountry: true, PotentialStructuring: true}},
		{"unknown rating falls back to medium prior", models.RiskRating("unknown"), nil, models.FeatureVector{}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			post := Update(tt.rating, tt.controls, tt.fv)
			if math.Abs(sum(post)-1.0) > 1e-9 {
				t.Errorf("posterior sum = %v, want 1.0", sum(post))
			}
			for i, v := range post {
				if v < 0 {
					t.Errorf("posterior[%d] = %v, want >= 0", i, v)
				}
			}
		})
	}
}

func TestUpdate_PassingControlsDoNotShiftPosterior(t *testing.T) {
	controls := []models.ControlResult{
		{Status: models.ControlPass, Severity: models.SeverityCritical},
	}
	got := Update(models.RiskRatingLow, controls, models.FeatureVector{})
	want := Update(models.RiskRatingLow, nil, models.FeatureVector{})
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("passing control changed posterior[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUpdate_CriticalFailureShiftsMassTowardHigherClasses(t *testing.T) {
	baseline := Update(models.RiskRatingLow, nil, models.FeatureVector{})
	shifted := Update(models.RiskRatingLow, []models.ControlResult{
		{Status: models.ControlFail, Severity: models.SeverityCritical},
	}, models.FeatureVector{})

	if shifted.Critical() <= baseline.Critical() {
		t.Errorf("critical failure should raise Critical() mass: baseline=%v shifted=%v", baseline.Critical(), shifted.Critical())
	}
	if shifted.Low() >= baseline.Low() {
		t.Errorf("critical failure should lower Low() mass: baseline=%v shifted=%v", baseline.Low(), shifted.Low())
	}
}
