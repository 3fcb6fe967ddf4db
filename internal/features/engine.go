// Package features computes deterministic per-transaction risk features.
package features

import (
	"math"

	"github.com/enterprise/aml-compliance/internal/models"
)

const window24h = 24
const window7d = 7 * 24

// Compute is a pure function from a transaction and its short customer
// history (a 30-day window, already filtered by the caller) to a
// FeatureVector. Safe to recompute; never returns an error.
func Compute(tx models.Transaction, history []models.Transaction) models.FeatureVector {
	fv := models.FeatureVector{
		Amount:        tx.Amount,
		IsHighValue:   tx.Amount > 10000,
		IsRoundNumber: math.Mod(tx.Amount, 1000) == 0,
		IsCrossBorder: tx.IsCrossBorder(),
	}

	riskSet := HighRiskCountrySetV1
	if _, ok := riskSet[tx.OriginatorCountry]; ok {
		fv.IsHighRiskCountry = true
	}
	if _, ok := riskSet[tx.BeneficiaryCountry]; ok {
		fv.IsHighRiskCountry = true
	}

	count24h, volume24h, sameDayCount := 0, 0.0, 0
	count7d, volume7d := 0, 0.0
	roundTripSeen := false

	for _, h := range history {
		age := tx.BookingDateTime.Sub(h.BookingDateTime).Hours()
		if age < 0 {
			continue
		}
		if age <= window24h {
			count24h++
			volume24h += h.Amount
			sameDayCount++
		}
		if age <= window7d {
			count7d++
			volume7d += h.Amount
		}
		if h.BeneficiaryAccount == tx.OriginatorAccount && h.OriginatorAccount == tx.BeneficiaryAccount {
			roundTripSeen = true
		}
	}

	fv.Count24h = count24h
	fv.Count7d = count7d
	fv.Volume24h = volume24h
	fv.Volume7d = volume7d
	fv.SameDayCount = sameDayCount
	fv.RoundTripSeen = roundTripSeen

	if count7d > 0 {
		fv.Average7d = volume7d / float64(count7d)
	}

	inStructuringBand := (tx.Amount >= 4500 && tx.Amount <= 5000) || (tx.Amount >= 9000 && tx.Amount <= 10000)
	fv.PotentialStructuring = inStructuringBand && count24h >= 2

	return fv
}
