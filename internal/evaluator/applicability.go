package evaluator

import (
	"context"
	"fmt"

	"github.com/enterprise/aml-compliance/internal/llmgateway"
	"github.com/enterprise/aml-compliance/internal/models"
)

const applicabilitySystemPrompt = `You are an AML compliance analyst. Given a regulatory rule and a transaction summary, decide whether the rule's obligations apply to this transaction. Respond with JSON only: {"applies": bool, "rationale": string, "confidence": number between 0 and 1}.`

type applicabilityResponse struct {
	Applies    bool    `json:"applies"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

func (e *Evaluator) assessApplicability(ctx context.Context, tx models.Transaction, rule models.Rule) (models.Applicability, error) {
	prompt := fmt.Sprintf("Rule:\n%s\n\nTransaction:\n%s", rule.Body, renderTransaction(tx))

	resp, err := e.gateway.Call(ctx, llmgateway.Request{
		SystemPrompt:    applicabilitySystemPrompt,
		Prompt:          prompt,
		ResponseFormat:  llmgateway.FormatJSON,
		MaxOutputTokens: 400,
		Temperature:     0.0,
	})
	if err != nil {
		return models.Applicability{}, err
	}

	var parsed applicabilityResponse
	if err := llmgateway.DecodeJSON(resp, &parsed); err != nil {
		return models.Applicability{}, err
	}

	return models.Applicability{
		Applies:    parsed.Applies,
		Rationale:  parsed.Rationale,
		Confidence: parsed.Confidence,
	}, nil
}

func renderTransaction(tx models.Transaction) string {
	return fmt.Sprintf(
		"amount=%.2f %s originator_country=%s beneficiary_country=%s customer_risk_rating=%s channel=%s pep_indicator=%t travel_rule_complete=%t",
		tx.Amount, tx.Currency, tx.OriginatorCountry, tx.BeneficiaryCountry, tx.CustomerRiskRating, tx.Channel, tx.PEPIndicator, tx.TravelRuleComplete,
	)
}
