// Package patterns computes the five named AML pattern scores from a
// transaction and its customer history.
package patterns

import (
	"math"

	"github.com/enterprise/aml-compliance/internal/models"
)

// Compute is a pure function, grounded in the same accumulate-then-cap
// scoring shape used throughout the teacher's behavioral scorer, but
// producing five independently capped named scores instead of one
// composite.
func Compute(tx models.Transaction, history []models.Transaction) models.PatternScores {
	count24h, count7d := 0, 0
	volume7d := 0.0
	sameDayCount := 0
	originatorWasBeneficiary := false
	abaChain := false

	for _, h := range history {
		age := tx.BookingDateTime.Sub(h.BookingDateTime).Hours()
		if age < 0 {
			continue
		}
		if age <= 24 {
			count24h++
			sameDayCount++
		}
		if age <= 7*24 {
			count7d++
			volume7d += h.Amount
		}
		if h.BeneficiaryAccount == tx.OriginatorAccount {
			originatorWasBeneficiary = true
		}
	}

	for i, a := range history {
		if a.OriginatorAccount != tx.OriginatorAccount || a.BeneficiaryAccount != tx.BeneficiaryAccount {
			continue
		}
		ageA := tx.BookingDateTime.Sub(a.BookingDateTime).Hours()
		if ageA < 0 || ageA > 7*24 {
			continue
		}
		for j, b := range history {
			if i == j {
				continue
			}
			if b.OriginatorAccount == tx.BeneficiaryAccount && b.BeneficiaryAccount == tx.OriginatorAccount {
				ageB := tx.BookingDateTime.Sub(b.BookingDateTime).Hours()
				if ageB >= 0 && ageB <= 7*24 {
					abaChain = true
				}
			}
		}
	}

	scores := models.PatternScores{}

	scores.Structuring = structuringScore(tx.Amount, count24h)
	scores.Layering = layeringScore(count24h, count7d, tx.IsCrossBorder())
	scores.CircularTransfer = circularTransferScore(originatorWasBeneficiary, abaChain)
	scores.RapidMovement = rapidMovementScore(sameDayCount)
	scores.VelocityAnomaly = velocityAnomalyScore(count24h, volume7d, count7d)

	return scores
}

func cap100(v float64) float64 {
	return math.Min(v, 100)
}

func structuringScore(amount float64, count24h int) float64 {
	var score float64
	if withinTenPctBelow(amount, 5000) || withinTenPctBelow(amount, 10000) {
		score += 60
	}
	if score > 0 && count24h > 2 {
		score += 40
	}
	return cap100(score)
}

func withinTenPctBelow(amount, threshold float64) bool {
	floor := threshold * 0.9
	return amount >= floor && amount <= threshold
}

func layeringScore(count24h, count7d int, crossBorder bool) float64 {
	if !crossBorder {
		return 0
	}
	score := 0.0
	if count7d > 20 {
		score = 70
	} else if count24h > 5 {
		score = 50
	}
	return cap100(score)
}

func circularTransferScore(originatorWasBeneficiary, abaChain bool) float64 {
	if abaChain {
		return 90
	}
	if originatorWasBeneficiary {
		return 60
	}
	return 0
}

func rapidMovementScore(sameDayCount int) float64 {
	switch {
	case sameDayCount >= 5:
		return 70
	case sameDayCount >= 3:
		return 50
	default:
		return 0
	}
}

func velocityAnomalyScore(count24h int, volume7d float64, count7d int) float64 {
	if count24h >= 10 {
		return 80
	}
	if count7d == 0 {
		return 0
	}
	avg7d := volume7d / float64(count7d)
	baseline := avg7d * 3
	if baseline <= 0 || volume7d <= baseline {
		return 0
	}
	score := 50 * (volume7d / math.Max(1, baseline))
	return cap100(math.Max(0, score))
}
