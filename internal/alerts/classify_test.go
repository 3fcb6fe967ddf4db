package alerts

import (
	"testing"
	"time"

	"github.com/enterprise/aml-compliance/internal/models"
	"github.com/google/uuid"
)

func baseInput(score float64) Input {
	return Input{
		Transaction: models.Transaction{ID: uuid.New(), BusinessID: "TX-1"},
		Risk:        models.RiskAssessment{Score: score, Band: models.BandForScore(score)},
	}
}

func hasType(alerts []models.Alert, t models.AlertType) bool {
	for _, a := range alerts {
		if a.AlertType == t {
			return true
		}
	}
	return false
}

func TestClassify_BelowThresholdWithNoLegalMatchReturnsNil(t *testing.T) {
	in := baseInput(29)
	got := Classify(in, time.Now())
	if got != nil {
		t.Errorf("expected nil alerts for score below 30 with no legal match, got %+v", got)
	}
}

func TestClassify_SanctionsHitAlwaysFiresRegardlessOfScore(t *testing.T) {
	in := baseInput(5)
	in.Transaction.SanctionsScreening = models.SanctionsHit

	got := Classify(in, time.Now())
	if !hasType(got, models.AlertSanctionsBreach) {
		t.Errorf("expected sanctions_breach alert, got %+v", got)
	}
}

func TestClassify_PEPHighRiskRequiresScoreAtLeast70(t *testing.T) {
	in := baseInput(70)
	in.Transaction.PEPIndicator = true
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertPEPHighRisk) {
		t.Errorf("expected pep_high_risk alert at score 70, got %+v", got)
	}

	below := baseInput(69)
	below.Transaction.PEPIndicator = true
	gotBelow := Classify(below, time.Now())
	if hasType(gotBelow, models.AlertPEPHighRisk) {
		t.Errorf("did not expect pep_high_risk alert below score 70")
	}
}

func TestClassify_CriticalRuleBreachRequiresCriticalFailureAndScore80(t *testing.T) {
	in := baseInput(80)
	in.ControlResults = []models.ControlResult{{Status: models.ControlFail, Severity: models.SeverityCritical}}

	got := Classify(in, time.Now())
	if !hasType(got, models.AlertCriticalRuleBreach) {
		t.Errorf("expected critical_rule_breach alert, got %+v", got)
	}

	noFailure := baseInput(80)
	gotNoFailure := Classify(noFailure, time.Now())
	if hasType(gotNoFailure, models.AlertCriticalRuleBreach) {
		t.Errorf("did not expect critical_rule_breach without a critical control failure")
	}
}

func TestClassify_StructuringPatternRequiresScoreAtLeast70(t *testing.T) {
	in := baseInput(50)
	in.Patterns = models.PatternScores{Structuring: 70}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertStructuringPattern) {
		t.Errorf("expected structuring_pattern alert when Structuring >= 70, got %+v", got)
	}
}

func TestClassify_HighRiskJurisdictionRequiresScoreAtLeast50(t *testing.T) {
	in := baseInput(50)
	in.Features = models.FeatureVector{IsHighRiskCountry: true}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertHighRiskJurisdiction) {
		t.Errorf("expected high_risk_jurisdiction alert, got %+v", got)
	}

	below := baseInput(49)
	below.Features = models.FeatureVector{IsHighRiskCountry: true}
	if hasType(Classify(below, time.Now()), models.AlertHighRiskJurisdiction) {
		t.Errorf("did not expect high_risk_jurisdiction below score 50")
	}
}

func TestClassify_MultipleControlFailuresRequiresTwoHighSeverityAndScore60(t *testing.T) {
	in := baseInput(60)
	in.ControlResults = []models.ControlResult{
		{Status: models.ControlFail, Severity: models.SeverityHigh},
		{Status: models.ControlFail, Severity: models.SeverityHigh},
	}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertMultipleControlFailures) {
		t.Errorf("expected multiple_control_failures alert, got %+v", got)
	}

	oneFailure := baseInput(60)
	oneFailure.ControlResults = []models.ControlResult{{Status: models.ControlFail, Severity: models.SeverityHigh}}
	if hasType(Classify(oneFailure, time.Now()), models.AlertMultipleControlFailures) {
		t.Errorf("did not expect multiple_control_failures with only one high-severity failure")
	}
}

func TestClassify_HighVsMediumRiskTransactionBandSplit(t *testing.T) {
	high := Classify(baseInput(70), time.Now())
	if !hasType(high, models.AlertHighRiskTransaction) {
		t.Errorf("expected high_risk_transaction at score 70, got %+v", high)
	}
	if hasType(high, models.AlertMediumRiskTransaction) {
		t.Errorf("did not expect medium_risk_transaction at score 70")
	}

	medium := Classify(baseInput(50), time.Now())
	if !hasType(medium, models.AlertMediumRiskTransaction) {
		t.Errorf("expected medium_risk_transaction at score 50, got %+v", medium)
	}
	if hasType(medium, models.AlertHighRiskTransaction) {
		t.Errorf("did not expect high_risk_transaction at score 50")
	}
}

func TestClassify_MissingDocumentationRequiresScoreAtLeast30(t *testing.T) {
	in := baseInput(30)
	in.EvidenceMaps = map[string]models.EvidenceMap{"rule1": {Missing: []string{"source_of_funds"}}}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertMissingDocumentation) {
		t.Errorf("expected missing_documentation alert, got %+v", got)
	}
}

func TestClassify_HighValueTransactionOnlyBelowScore50(t *testing.T) {
	in := baseInput(49)
	in.Features = models.FeatureVector{IsHighValue: true}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertHighValueTransaction) {
		t.Errorf("expected high_value_transaction alert below score 50, got %+v", got)
	}

	atThreshold := baseInput(50)
	atThreshold.Features = models.FeatureVector{IsHighValue: true}
	if hasType(Classify(atThreshold, time.Now()), models.AlertHighValueTransaction) {
		t.Errorf("did not expect high_value_transaction at score 50")
	}
}

func TestClassify_CrossBorderRequiresScoreAtLeast40(t *testing.T) {
	in := baseInput(40)
	in.Features = models.FeatureVector{IsCrossBorder: true}
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertCrossBorderTransaction) {
		t.Errorf("expected cross_border_transaction alert, got %+v", got)
	}
}

func TestClassify_DocumentationReviewVsRoutineMonitoringFallback(t *testing.T) {
	reviewed := Classify(baseInput(30), time.Now())
	if !hasType(reviewed, models.AlertDocumentationReview) {
		t.Errorf("expected documentation_review alert at score 30, got %+v", reviewed)
	}

	in := baseInput(29)
	in.Transaction.SanctionsScreening = models.SanctionsHit
	got := Classify(in, time.Now())
	if !hasType(got, models.AlertRoutineMonitoring) {
		t.Errorf("expected routine_monitoring fallback when score stays below 30 with no other front-class match, got %+v", got)
	}
}

func TestClassify_EffectivePatternsFallsBackToFeatureEstimatesWhenAllZero(t *testing.T) {
	in := baseInput(50)
	in.Patterns = models.PatternScores{}
	in.Features = models.FeatureVector{PotentialStructuring: true}

	got := effectivePatterns(in)
	if got.Structuring != 35 {
		t.Errorf("effectivePatterns.Structuring = %v, want 35 fallback estimate", got.Structuring)
	}
}

func TestClassify_EffectivePatternsKeepsNonZeroPatternsUnchanged(t *testing.T) {
	in := baseInput(50)
	in.Patterns = models.PatternScores{Structuring: 12}
	in.Features = models.FeatureVector{PotentialStructuring: true}

	got := effectivePatterns(in)
	if got.Structuring != 12 {
		t.Errorf("effectivePatterns.Structuring = %v, want the real 12 score left unchanged", got.Structuring)
	}
	if got.Layering != 0 {
		t.Errorf("effectivePatterns.Layering = %v, want 0 when real patterns are present", got.Layering)
	}
}

func TestClassify_SLADeadlineMatchesSeverity(t *testing.T) {
	now := time.Now()
	in := baseInput(5)
	in.Transaction.SanctionsScreening = models.SanctionsHit

	got := Classify(in, now)
	if len(got) == 0 {
		t.Fatalf("expected at least one alert")
	}
	alert := got[0]
	wantSLA := models.SLAFor(models.AlertSeverityCritical)
	if !alert.SLADeadline.Equal(now.Add(wantSLA)) {
		t.Errorf("SLADeadline = %v, want %v", alert.SLADeadline, now.Add(wantSLA))
	}
}

func TestClassify_AlertIDsAreUniqueByOrdinal(t *testing.T) {
	in := baseInput(80)
	in.Transaction.PEPIndicator = true
	in.ControlResults = []models.ControlResult{{Status: models.ControlFail, Severity: models.SeverityCritical}}

	got := Classify(in, time.Now())
	if len(got) < 2 {
		t.Fatalf("expected multiple alerts to exercise ordinal uniqueness, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, a := range got {
		if seen[a.ID] {
			t.Errorf("duplicate alert ID %q", a.ID)
		}
		seen[a.ID] = true
	}
}
