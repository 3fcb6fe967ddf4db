package fusion

import (
	"math"
	"testing"

	"github.com/enterprise/aml-compliance/internal/models"
)

func TestFuse_WeightedCombination(t *testing.T) {
	controls := []models.ControlResult{
		{RuleID: "R1", Severity: models.SeverityCritical, ComplianceScore: 0},
	}
	posterior := models.Posterior{0, 0, 0, 1}
	pattern := models.PatternScores{Structuring: 50}

	got := Fuse(controls, posterior, pattern)

	ruleBased := 100.0
	mlBased := models.BayesianSummaryScalar(posterior)
	patternBased := 50.0
	want := weightRuleBased*ruleBased + weightMLBased*mlBased + weightPatternBased*patternBased

	if math.Abs(got.Score-want) > 0.001 {
		t.Errorf("Score = %v, want %v", got.Score, want)
	}
	if got.Band != models.BandForScore(want) {
		t.Errorf("Band = %v, want %v", got.Band, models.BandForScore(want))
	}
}

func TestFuse_ClampsToRange(t *testing.T) {
	controls := []models.ControlResult{
		{RuleID: "R1", Severity: models.SeverityCritical, ComplianceScore: 0},
	}
	posterior := models.Posterior{0, 0, 0, 1}
	pattern := models.PatternScores{Structuring: 100}

	got := Fuse(controls, posterior, pattern)
	if got.Score < 0 || got.Score > 100 {
		t.Fatalf("Score %v out of [0,100] range", got.Score)
	}
}

func TestFuse_NoControls(t *testing.T) {
	got := Fuse(nil, models.Posterior{1, 0, 0, 0}, models.PatternScores{})
	if got.Breakdown.RuleBased != 0 {
		t.Errorf("RuleBased = %v, want 0 when no controls applied", got.Breakdown.RuleBased)
	}
}

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  models.RiskBand
	}{
		{0, models.BandLow},
		{29.999, models.BandLow},
		{30.0, models.BandMedium},
		{59.999, models.BandMedium},
		{60.0, models.BandHigh},
		{79.999, models.BandHigh},
		{80.0, models.BandCritical},
		{100, models.BandCritical},
	}
	for _, tt := range tests {
		if got := models.BandForScore(tt.score); got != tt.want {
			t.Errorf("BandForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
