package models

// Applicability is the LLM's judgment of whether a rule's obligations
// bear on a transaction.
type Applicability struct {
	Applies    bool    `json:"applies"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// EvidenceMap partitions a rule's expected evidence field names into three
// disjoint sets relative to one transaction.
type EvidenceMap struct {
	Present       []string `json:"present"`
	Missing       []string `json:"missing"`
	Contradictory []string `json:"contradictory"`
}

// HasMissing reports whether any expected field was absent.
func (m EvidenceMap) HasMissing() bool {
	return len(m.Missing) > 0
}

// ControlStatus is the outcome of testing one control against one
// transaction.
type ControlStatus string

const (
	ControlPass    ControlStatus = "pass"
	ControlFail    ControlStatus = "fail"
	ControlPartial ControlStatus = "partial"
)

// ControlResult is the per-applicable-rule outcome of a control test.
type ControlResult struct {
	RuleID          string        `json:"rule_id"`
	Status          ControlStatus `json:"status"`
	Severity        Severity      `json:"severity"`
	ComplianceScore float64       `json:"compliance_score"`
	Rationale       string        `json:"rationale"`
}

// FeatureVector is the deterministic per-transaction feature set computed
// by FeatureEngine.
type FeatureVector struct {
	Amount              float64 `json:"amount"`
	IsHighValue         bool    `json:"is_high_value"`
	IsRoundNumber       bool    `json:"is_round_number"`
	IsCrossBorder       bool    `json:"is_cross_border"`
	IsHighRiskCountry   bool    `json:"is_high_risk_country"`
	PotentialStructuring bool   `json:"potential_structuring"`

	Count24h  int `json:"count_24h"`
	Count7d   int `json:"count_7d"`

	Volume24h float64 `json:"volume_24h"`
	Volume7d  float64 `json:"volume_7d"`
	Average7d float64 `json:"average_7d"`

	SameDayCount  int  `json:"same_day_count"`
	RoundTripSeen bool `json:"round_trip_seen"`
}

// PatternScores carries the five named AML pattern scores, each in
// [0,100].
type PatternScores struct {
	Structuring      float64 `json:"structuring"`
	Layering         float64 `json:"layering"`
	CircularTransfer float64 `json:"circular_transfer"`
	RapidMovement    float64 `json:"rapid_movement"`
	VelocityAnomaly  float64 `json:"velocity_anomaly"`
}

// Max returns the largest of the five scores, used by RiskFusion's
// pattern-based leg.
func (p PatternScores) Max() float64 {
	m := p.Structuring
	for _, v := range []float64{p.Layering, p.CircularTransfer, p.RapidMovement, p.VelocityAnomaly} {
		if v > m {
			m = v
		}
	}
	return m
}

// IsZero reports whether all five scores are exactly zero, the trigger for
// AlertClassifier's feature-based fallback.
func (p PatternScores) IsZero() bool {
	return p.Structuring == 0 && p.Layering == 0 && p.CircularTransfer == 0 &&
		p.RapidMovement == 0 && p.VelocityAnomaly == 0
}

// RiskClass indexes the four-class posterior distribution in the fixed
// order (low, medium, high, critical).
type RiskClass int

const (
	ClassLow RiskClass = iota
	ClassMedium
	ClassHigh
	ClassCritical
	numRiskClasses
)

// Posterior is a probability distribution over the four risk classes,
// summing to 1 within tolerance.
type Posterior [numRiskClasses]float64

func (p Posterior) Low() float64      { return p[ClassLow] }
func (p Posterior) Medium() float64   { return p[ClassMedium] }
func (p Posterior) High() float64     { return p[ClassHigh] }
func (p Posterior) Critical() float64 { return p[ClassCritical] }

// RiskBreakdown is the persisted transparency record behind a fused score.
type RiskBreakdown struct {
	RuleBased    float64 `json:"rule_based"`
	MLBased      float64 `json:"ml_based"`
	PatternBased float64 `json:"pattern_based"`
}

// RiskAssessment is RiskFusion's output.
type RiskAssessment struct {
	Score     float64       `json:"score"`
	Band      RiskBand      `json:"band"`
	Breakdown RiskBreakdown `json:"breakdown"`
}
