package evaluator

import (
	"context"
	"fmt"

	"github.com/enterprise/aml-compliance/internal/llmgateway"
	"github.com/enterprise/aml-compliance/internal/models"
)

const controlTestSystemPrompt = `You are an AML compliance analyst testing one control against one transaction. Respond with JSON only: {"status": "pass"|"fail"|"partial", "severity": "critical"|"high"|"medium"|"low", "compliance_score": number 0-100, "rationale": string}.`

type controlTestResponse struct {
	Status          string  `json:"status"`
	Severity        string  `json:"severity"`
	ComplianceScore float64 `json:"compliance_score"`
	Rationale       string  `json:"rationale"`
}

func (e *Evaluator) testControl(ctx context.Context, tx models.Transaction, rule models.Rule, evidence models.EvidenceMap) (models.ControlResult, error) {
	prompt := fmt.Sprintf(
		"Rule:\n%s\n\nTransaction:\n%s\n\nEvidenceMap: present=%v missing=%v contradictory=%v",
		rule.Body, renderTransaction(tx), evidence.Present, evidence.Missing, evidence.Contradictory,
	)

	resp, err := e.gateway.Call(ctx, llmgateway.Request{
		SystemPrompt:    controlTestSystemPrompt,
		Prompt:          prompt,
		ResponseFormat:  llmgateway.FormatJSON,
		MaxOutputTokens: 400,
		Temperature:     0.0,
	})
	if err != nil {
		return models.ControlResult{}, err
	}

	var parsed controlTestResponse
	if err := llmgateway.DecodeJSON(resp, &parsed); err != nil {
		return models.ControlResult{}, err
	}

	// The rule's declared severity always takes precedence over whatever
	// the model returned, per §4.4 and the resolved Open Question in
	// DESIGN.md.
	return models.ControlResult{
		RuleID:          rule.ID,
		Status:          models.ControlStatus(parsed.Status),
		Severity:        rule.Severity,
		ComplianceScore: parsed.ComplianceScore,
		Rationale:       parsed.Rationale,
	}, nil
}
