package features

import (
	"testing"
	"time"

	"github.com/enterprise/aml-compliance/internal/models"
)

func TestCompute_HighValueThreshold(t *testing.T) {
	tests := []struct {
		amount float64
		want   bool
	}{
		{10000, false},
		{10000.01, true},
		{9999.99, false},
	}
	for _, tt := range tests {
		fv := Compute(models.Transaction{Amount: tt.amount, BookingDateTime: time.Now()}, nil)
		if fv.IsHighValue != tt.want {
			t.Errorf("Compute(amount=%v).IsHighValue = %v, want %v", tt.amount, fv.IsHighValue, tt.want)
		}
	}
}

func TestCompute_HighRiskCountryEitherSide(t *testing.T) {
	now := time.Now()
	originatorHighRisk := Compute(models.Transaction{BookingDateTime: now, OriginatorCountry: "IR", BeneficiaryCountry: "US"}, nil)
	if !originatorHighRisk.IsHighRiskCountry {
		t.Errorf("expected IsHighRiskCountry when originator is on the frozen high-risk list")
	}

	beneficiaryHighRisk := Compute(models.Transaction{BookingDateTime: now, OriginatorCountry: "US", BeneficiaryCountry: "KP"}, nil)
	if !beneficiaryHighRisk.IsHighRiskCountry {
		t.Errorf("expected IsHighRiskCountry when beneficiary is on the frozen high-risk list")
	}

	neither := Compute(models.Transaction{BookingDateTime: now, OriginatorCountry: "US", BeneficiaryCountry: "GB"}, nil)
	if neither.IsHighRiskCountry {
		t.Errorf("did not expect IsHighRiskCountry for two low-risk jurisdictions")
	}
}

func TestCompute_PotentialStructuringRequiresBandAndVelocity(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{Amount: 9500, BookingDateTime: now}
	history := []models.Transaction{
		{Amount: 100, BookingDateTime: now.Add(-time.Hour)},
		{Amount: 100, BookingDateTime: now.Add(-2 * time.Hour)},
	}

	fv := Compute(tx, history)
	if !fv.PotentialStructuring {
		t.Errorf("expected PotentialStructuring true for in-band amount with 2+ same-day transactions")
	}

	fvNoHistory := Compute(tx, nil)
	if fvNoHistory.PotentialStructuring {
		t.Errorf("expected PotentialStructuring false without supporting velocity")
	}
}

func TestCompute_HistoryExcludesFutureAndOutOfWindow(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{Amount: 100, BookingDateTime: now}
	history := []models.Transaction{
		{Amount: 50, BookingDateTime: now.Add(time.Hour)},       // future, excluded
		{Amount: 75, BookingDateTime: now.Add(-30 * 24 * time.Hour)}, // far past, excluded from both windows
		{Amount: 25, BookingDateTime: now.Add(-12 * time.Hour)}, // within 24h window
	}

	fv := Compute(tx, history)
	if fv.Count24h != 1 {
		t.Errorf("Count24h = %d, want 1", fv.Count24h)
	}
	if fv.Volume24h != 25 {
		t.Errorf("Volume24h = %v, want 25", fv.Volume24h)
	}
}

func TestCompute_RoundTripDetection(t *testing.T) {
	now := time.Now()
	tx := models.Transaction{
		Amount: 100, BookingDateTime: now,
		OriginatorAccount: "ACC-A", BeneficiaryAccount: "ACC-B",
	}
	history := []models.Transaction{
		{Amount: 100, BookingDateTime: now.Add(-time.Hour), OriginatorAccount: "ACC-B", BeneficiaryAccount: "ACC-A"},
	}

	fv := Compute(tx, history)
	if !fv.RoundTripSeen {
		t.Errorf("expected RoundTripSeen true when a prior transaction reverses originator/beneficiary")
	}
}
