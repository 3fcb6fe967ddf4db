package patterns

import (
	"testing"
	"time"

	"github.com/enterprise/aml-compliance/internal/models"
)

func txAt(amount float64, minutesAgo int, originator, beneficiary string) models.Transaction {
	return models.Transaction{
		Amount:             amount,
		OriginatorAccount:  originator,
		BeneficiaryAccount: beneficiary,
		BookingDateTime:    time.Now().Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func TestCompute_StructuringJustBelowThreshold(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{Amount: 9800, BookingDateTime: now, OriginatorAccount: "A", BeneficiaryAccount: "B"}
	history := []models.Transaction{
		txAt(100, 60, "A", "X"),
		txAt(100, 120, "A", "X"),
		txAt(100, 180, "A", "X"),
	}

	scores := Compute(tx, history)
	if scores.Structuring == 0 {
		t.Errorf("expected nonzero structuring score for amount just under 10000 threshold")
	}
}

func TestCompute_NoHistoryYieldsZeroScores(t *testing.T) {
	tx := models.Transaction{Amount: 100, BookingDateTime: time.Now()}
	scores := Compute(tx, nil)
	if !scores.IsZero() {
		t.Errorf("expected all-zero pattern scores with no history, got %+v", scores)
	}
}

func TestCompute_CircularTransferDetectsRoundTrip(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{
		Amount: 500, BookingDateTime: now,
		OriginatorAccount: "A", BeneficiaryAccount: "B",
	}
	history := []models.Transaction{
		{Amount: 500, BookingDateTime: now.Add(-time.Hour), OriginatorAccount: "B", BeneficiaryAccount: "A"},
	}

	scores := Compute(tx, history)
	if scores.CircularTransfer == 0 {
		t.Errorf("expected nonzero circular transfer score when beneficiary previously paid originator")
	}
}

func TestCompute_FutureHistoryIgnored(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{Amount: 100, BookingDateTime: now, OriginatorAccount: "A", BeneficiaryAccount: "B"}
	future := models.Transaction{Amount: 100, BookingDateTime: now.Add(time.Hour), OriginatorAccount: "A", BeneficiaryAccount: "B"}

	scores := Compute(tx, []models.Transaction{future})
	if !scores.IsZero() {
		t.Errorf("expected future-dated history to be ignored, got %+v", scores)
	}
}

func TestCompute_ScoresCappedAt100(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{Amount: 9999, BookingDateTime: now, OriginatorCountry: "US", BeneficiaryCountry: "DE"}
	var history []models.Transaction
	for i := 0; i < 25; i++ {
		history = append(history, models.Transaction{
			Amount:          100,
			BookingDateTime: now.Add(-time.Duration(i) * time.Hour),
		})
	}

	scores := Compute(tx, history)
	for _, v := range []float64{scores.Structuring, scores.Layering, scores.CircularTransfer, scores.RapidMovement, scores.VelocityAnomaly} {
		if v > 100 {
			t.Errorf("score %v exceeds cap of 100", v)
		}
	}
}
