package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a submitted transaction.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "PENDING"
	TransactionProcessing TransactionStatus = "PROCESSING"
	TransactionCompleted  TransactionStatus = "COMPLETED"
	TransactionFailed     TransactionStatus = "FAILED"
)

// IsTerminal reports whether status can no longer transition.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

// SanctionsResult is the outcome of upstream sanctions screening, carried
// verbatim on the transaction rather than recomputed by the pipeline.
type SanctionsResult string

const (
	SanctionsClear SanctionsResult = "clear"
	SanctionsHit   SanctionsResult = "hit"
	SanctionsNone  SanctionsResult = ""
)

// Transaction is an immutable evaluation request. Only status and the
// processing timestamps are ever mutated after creation.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	BusinessID string    `json:"business_id"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	BookingDateTime time.Time `json:"booking_datetime"`
	ValueDate       time.Time `json:"value_date"`

	OriginatorName    string `json:"originator_name"`
	OriginatorAccount string `json:"originator_account"`
	OriginatorCountry string `json:"originator_country"`
	BeneficiaryName   string `json:"beneficiary_name"`
	BeneficiaryAccount string `json:"beneficiary_account"`
	BeneficiaryCountry string `json:"beneficiary_country"`

	CustomerID         string     `json:"customer_id"`
	CustomerRiskRating RiskRating `json:"customer_risk_rating"`
	CustomerKYCDate    *time.Time `json:"customer_kyc_date,omitempty"`

	Channel string `json:"channel"`
	Product string `json:"product"`

	SwiftMessageType string `json:"swift_message_type"`
	SwiftPurposeCode string `json:"swift_purpose_code"`
	SwiftCharges     string `json:"swift_charges"`

	TravelRuleComplete   bool            `json:"travel_rule_complete"`
	IsFX                 bool            `json:"is_fx"`
	PEPIndicator         bool            `json:"pep_indicator"`
	SanctionsScreening   SanctionsResult `json:"sanctions_screening_result"`

	Status TransactionStatus `json:"status"`

	CreatedAt            time.Time  `json:"created_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`

	RawPayload JSONB `json:"raw_payload,omitempty"`
}

// SanctionsHit reports whether sanctions screening flagged this transaction.
func (t Transaction) SanctionsHit() bool {
	return t.SanctionsScreening == SanctionsHit
}

// IsCrossBorder reports whether originator and beneficiary countries differ.
func (t Transaction) IsCrossBorder() bool {
	return t.OriginatorCountry != "" && t.BeneficiaryCountry != "" && t.OriginatorCountry != t.BeneficiaryCountry
}

// Field returns the transaction's value for a named field used in expected
// evidence declarations, and whether that field is considered non-empty.
// Unknown names return ("", false).
func (t Transaction) Field(name string) (string, bool) {
	switch name {
	case "swift_f70_purpose", "swift_purpose_code":
		return t.SwiftPurposeCode, t.SwiftPurposeCode != ""
	case "swift_message_type":
		return t.SwiftMessageType, t.SwiftMessageType != ""
	case "customer_kyc_date":
		if t.CustomerKYCDate == nil {
			return "", false
		}
		return t.CustomerKYCDate.Format(time.RFC3339), true
	case "originator_account":
		return t.OriginatorAccount, t.OriginatorAccount != ""
	case "beneficiary_account":
		return t.BeneficiaryAccount, t.BeneficiaryAccount != ""
	case "travel_rule_complete":
		if t.TravelRuleComplete {
			return "true", true
		}
		return "false", false
	default:
		return "", false
	}
}
