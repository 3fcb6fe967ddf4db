package orchestrator

import (
	"strings"
	"testing"

	"github.com/enterprise/aml-compliance/internal/models"
)

func TestBuildQueries_IncludesConditionalQueriesWhenApplicable(t *testing.T) {
	tx := models.Transaction{
		CustomerRiskRating: models.RiskRatingHigh,
		Channel:            "wire",
		OriginatorCountry:  "US",
		BeneficiaryCountry: "DE",
		PEPIndicator:       true,
		Amount:             15000,
		SwiftMessageType:   "MT103",
		Product:            "correspondent_banking",
	}

	queries := buildQueries(tx)

	want := []string{"cross-border", "politically exposed", "large value transaction", "SWIFT MT103"}
	for _, w := range want {
		found := false
		for _, q := range queries {
			if strings.Contains(q, w) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected a query containing %q, got %+v", w, queries)
		}
	}
}

func TestBuildQueries_OmitsConditionalQueriesWhenNotApplicable(t *testing.T) {
	tx := models.Transaction{
		CustomerRiskRating: models.RiskRatingLow,
		Channel:            "ach",
		OriginatorCountry:  "US",
		BeneficiaryCountry: "US",
		Amount:             500,
		Product:            "retail",
	}

	queries := buildQueries(tx)
	for _, q := range queries {
		if strings.Contains(q, "politically exposed") || strings.Contains(q, "large value transaction") || strings.Contains(q, "SWIFT") {
			t.Errorf("did not expect a conditional query for a low-risk domestic small transaction, got %q", q)
		}
	}
}

func TestDedupRetrieved_KeepsHighestScorePerRuleID(t *testing.T) {
	rules := []models.RetrievedRule{
		{Rule: models.Rule{ID: "R1"}, Score: 0.5},
		{Rule: models.Rule{ID: "R1"}, Score: 0.9},
		{Rule: models.Rule{ID: "R2"}, Score: 0.3},
	}

	got := dedupRetrieved(rules)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	for _, r := range got {
		if r.Rule.ID == "R1" && r.Score != 0.9 {
			t.Errorf("R1 score = %v, want 0.9 (the higher of the two duplicates)", r.Score)
		}
	}
}

func TestIsHighRiskCountry_EitherOriginatorOrBeneficiary(t *testing.T) {
	set := map[string]struct{}{"IR": {}, "KP": {}}

	if !isHighRiskCountry(models.Transaction{OriginatorCountry: "IR", BeneficiaryCountry: "US"}, set) {
		t.Errorf("expected high-risk match on originator country")
	}
	if !isHighRiskCountry(models.Transaction{OriginatorCountry: "US", BeneficiaryCountry: "KP"}, set) {
		t.Errorf("expected high-risk match on beneficiary country")
	}
	if isHighRiskCountry(models.Transaction{OriginatorCountry: "US", BeneficiaryCountry: "GB"}, set) {
		t.Errorf("did not expect a high-risk match for two countries outside the set")
	}
}

