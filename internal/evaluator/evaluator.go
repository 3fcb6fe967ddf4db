// Package evaluator drives Applicability, EvidenceMapper, and ControlTest
// for each retrieved rule, fanning out bounded-concurrent LLM calls.
package evaluator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/enterprise/aml-compliance/internal/errs"
	"github.com/enterprise/aml-compliance/internal/llmgateway"
	"github.com/enterprise/aml-compliance/internal/models"
	"github.com/enterprise/aml-compliance/internal/rulestore"
)

const (
	maxRulesPerEvaluation = 10
	minConfidence         = 0.3
	minSuccessfulControls = 2
	applicableRuleFloor   = 5
)

// Warning records a per-rule failure that was dropped from the analysis
// rather than failing the whole evaluation.
type Warning struct {
	RuleID string
	Err    error
}

// Result is the output of one full Applicability+EvidenceMapper+ControlTest
// pass over a retrieved-rule set.
type Result struct {
	ApplicableRuleScores []models.RuleScore
	EvidenceMaps         map[string]models.EvidenceMap
	ControlResults       []models.ControlResult
	Warnings             []Warning
}

// Evaluator is grounded on the teacher's WorkerPool goroutine-per-slot fan
// out (internal/scoring/worker.go), retargeted from N stream consumers to
// N concurrent per-rule LLM calls.
type Evaluator struct {
	gateway     *llmgateway.Gateway
	concurrency int
}

func New(gateway *llmgateway.Gateway, concurrency int) *Evaluator {
	if concurrency <= 0 {
		concurrency = maxRulesPerEvaluation
	}
	return &Evaluator{gateway: gateway, concurrency: concurrency}
}

// Evaluate runs the fan-out over the top-10 (by fused score) retrieved
// rules and returns the aggregated per-rule verdicts.
func (e *Evaluator) Evaluate(ctx context.Context, tx models.Transaction, retrieved []models.RetrievedRule) (Result, error) {
	candidates := append([]models.RetrievedRule(nil), retrieved...)
	rulestore.SortByScoreDesc(candidates)
	if len(candidates) > maxRulesPerEvaluation {
		candidates = candidates[:maxRulesPerEvaluation]
	}

	applicable, warnings, err := e.applicabilityPass(ctx, tx, candidates)
	if err != nil {
		return Result{}, err
	}

	evidenceMaps := map[string]models.EvidenceMap{}
	for _, r := range applicable {
		evidenceMaps[r.Rule.ID] = mapEvidence(r.Rule, tx)
	}

	controls, controlWarnings, err := e.controlTestPass(ctx, tx, applicable, evidenceMaps)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, controlWarnings...)

	if len(applicable) > applicableRuleFloor && len(controls) < minSuccessfulControls {
		return Result{}, errs.New(errs.KindStage, "evaluator.Evaluate",
			fmt.Errorf("only %d successful control tests from %d applicable rules", len(controls), len(applicable)))
	}

	scores := make([]models.RuleScore, 0, len(applicable))
	for _, r := range applicable {
		scores = append(scores, models.RuleScore{RuleID: r.Rule.ID, Score: r.Score})
	}

	return Result{
		ApplicableRuleScores: scores,
		EvidenceMaps:         evidenceMaps,
		ControlResults:       controls,
		Warnings:             warnings,
	}, nil
}

func (e *Evaluator) applicabilityPass(ctx context.Context, tx models.Transaction, candidates []models.RetrievedRule) ([]models.RetrievedRule, []Warning, error) {
	type outcome struct {
		rule    models.RetrievedRule
		applies bool
		warn    *Warning
	}
	outcomes := make([]outcome, len(candidates))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for i, rr := range candidates {
		i, rr := i, rr
		group.Go(func() error {
			app, err := e.assessApplicability(gctx, tx, rr.Rule)
			if err != nil {
				outcomes[i] = outcome{rule: rr, warn: &Warning{RuleID: rr.Rule.ID, Err: err}}
				return nil
			}
			outcomes[i] = outcome{rule: rr, applies: app.Applies && app.Confidence >= minConfidence}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, errs.New(errs.KindStage, "evaluator.applicabilityPass", err)
	}

	var applicable []models.RetrievedRule
	var warnings []Warning
	for _, o := range outcomes {
		if o.warn != nil {
			warnings = append(warnings, *o.warn)
			continue
		}
		if o.applies {
			applicable = append(applicable, o.rule)
		}
	}
	return applicable, warnings, nil
}

func (e *Evaluator) controlTestPass(ctx context.Context, tx models.Transaction, applicable []models.RetrievedRule, evidence map[string]models.EvidenceMap) ([]models.ControlResult, []Warning, error) {
	type outcome struct {
		result *models.ControlResult
		warn   *Warning
	}
	outcomes := make([]outcome, len(applicable))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for i, rr := range applicable {
		i, rr := i, rr
		group.Go(func() error {
			result, err := e.testControl(gctx, tx, rr.Rule, evidence[rr.Rule.ID])
			if err != nil {
				outcomes[i] = outcome{warn: &Warning{RuleID: rr.Rule.ID, Err: err}}
				return nil
			}
			outcomes[i] = outcome{result: &result}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, errs.New(errs.KindStage, "evaluator.controlTestPass", err)
	}

	var results []models.ControlResult
	var warnings []Warning
	for _, o := range outcomes {
		if o.warn != nil {
			warnings = append(warnings, *o.warn)
			continue
		}
		if o.result != nil {
			results = append(results, *o.result)
		}
	}
	return results, warnings, nil
}
