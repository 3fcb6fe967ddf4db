package rulestore

import (
	"testing"
	"time"

	"github.com/enterprise/aml-compliance/internal/models"
)

func TestAccumulateRanks_ReciprocalRankFusion(t *testing.T) {
	fused := map[string]*fusedEntry{}
	accumulateRanks(fused, []rankedRule{{id: "R1"}, {id: "R2"}}, "q1")
	accumulateRanks(fused, []rankedRule{{id: "R2"}, {id: "R1"}}, "q1")

	wantR1 := 1.0/float64(rrfK+1) + 1.0/float64(rrfK+2)
	wantR2 := 1.0/float64(rrfK+2) + 1.0/float64(rrfK+1)

	if got := fused["R1"].score; got != wantR1 {
		t.Errorf("R1 fused score = %v, want %v", got, wantR1)
	}
	if got := fused["R2"].score; got != wantR2 {
		t.Errorf("R2 fused score = %v, want %v", got, wantR2)
	}
}

func TestAccumulateRanks_FirstQueryIsPreservedOnRepeatHits(t *testing.T) {
	fused := map[string]*fusedEntry{}
	accumulateRanks(fused, []rankedRule{{id: "R1"}}, "first")
	accumulateRanks(fused, []rankedRule{{id: "R1"}}, "second")

	if fused["R1"].firstQuery != "first" {
		t.Errorf("firstQuery = %q, want %q", fused["R1"].firstQuery, "first")
	}
}

func TestJurisdictionMatches_EmptyListsAlwaysMatch(t *testing.T) {
	rule := models.Rule{Jurisdictions: nil}
	if !jurisdictionMatches(rule, []string{"US"}) {
		t.Errorf("expected match when the rule declares no jurisdictions")
	}
	if !jurisdictionMatches(models.Rule{Jurisdictions: []string{"US"}}, nil) {
		t.Errorf("expected match when the transaction declares no jurisdictions")
	}
}

func TestJurisdictionMatches_RequiresOverlap(t *testing.T) {
	rule := models.Rule{Jurisdictions: []string{"US", "GB"}}
	if !jurisdictionMatches(rule, []string{"GB", "DE"}) {
		t.Errorf("expected match on overlapping jurisdiction GB")
	}
	if jurisdictionMatches(rule, []string{"FR", "DE"}) {
		t.Errorf("did not expect match with no overlapping jurisdiction")
	}
}

func TestSortByScoreDesc(t *testing.T) {
	rules := []models.RetrievedRule{
		{Score: 0.2}, {Score: 0.9}, {Score: 0.5},
	}
	SortByScoreDesc(rules)
	for i := 1; i < len(rules); i++ {
		if rules[i].Score > rules[i-1].Score {
			t.Fatalf("rules not sorted descending: %+v", rules)
		}
	}
}

func TestRetrievable_RespectsActiveEffectiveAndSunsetBoundaries(t *testing.T) {
	now := time.Now()
	sunset := now.Add(24 * time.Hour)

	active := models.Rule{IsActive: true, EffectiveDate: now.Add(-time.Hour)}
	if !active.Retrievable(now) {
		t.Errorf("expected active rule already in effect to be retrievable")
	}

	inactive := models.Rule{IsActive: false, EffectiveDate: now.Add(-time.Hour)}
	if inactive.Retrievable(now) {
		t.Errorf("did not expect an inactive rule to be retrievable")
	}

	notYetEffective := models.Rule{IsActive: true, EffectiveDate: now.Add(time.Hour)}
	if notYetEffective.Retrievable(now) {
		t.Errorf("did not expect a not-yet-effective rule to be retrievable")
	}

	sunsetRule := models.Rule{IsActive: true, EffectiveDate: now.Add(-time.Hour), SunsetDate: &sunset}
	if !sunsetRule.Retrievable(now) {
		t.Errorf("expected rule to be retrievable before its sunset date")
	}
	if sunsetRule.Retrievable(sunset) {
		t.Errorf("did not expect rule to be retrievable at or after its sunset date")
	}
}
