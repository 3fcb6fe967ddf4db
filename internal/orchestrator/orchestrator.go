// Package orchestrator drives one transaction through the fixed 13-stage
// evaluation pipeline and owns the PROCESSING/COMPLETED/FAILED lifecycle.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/internal/alerts"
	"github.com/enterprise/aml-compliance/internal/bayes"
	"github.com/enterprise/aml-compliance/internal/errs"
	"github.com/enterprise/aml-compliance/internal/evaluator"
	"github.com/enterprise/aml-compliance/internal/features"
	"github.com/enterprise/aml-compliance/internal/fusion"
	"github.com/enterprise/aml-compliance/internal/llmgateway"
	"github.com/enterprise/aml-compliance/internal/models"
	"github.com/enterprise/aml-compliance/internal/patterns"
	"github.com/enterprise/aml-compliance/internal/persistence"
	"github.com/enterprise/aml-compliance/internal/queue"
	"github.com/enterprise/aml-compliance/internal/repositories"
	"github.com/enterprise/aml-compliance/internal/rulestore"
)

const historyWindow = 30 * 24 * time.Hour

// Orchestrator is grounded on the teacher's ScoringEngine.ScoreTransaction
// entry point (internal/scoring/worker.go's processMessage shape),
// generalized from a single scoring call to the full 13-stage DAG.
type Orchestrator struct {
	txRepo       *repositories.TransactionRepository
	analysisRepo *repositories.AnalysisRepository
	store        *rulestore.Store
	evaluatorSvc *evaluator.Evaluator
	gateway      *llmgateway.Gateway
	persistor    *persistence.Persistor
	highRiskSet  map[string]struct{}
	deadline     time.Duration
}

func New(
	txRepo *repositories.TransactionRepository,
	analysisRepo *repositories.AnalysisRepository,
	store *rulestore.Store,
	evaluatorSvc *evaluator.Evaluator,
	gateway *llmgateway.Gateway,
	persistor *persistence.Persistor,
	highRiskSet map[string]struct{},
	deadline time.Duration,
) *Orchestrator {
	return &Orchestrator{
		txRepo:       txRepo,
		analysisRepo: analysisRepo,
		store:        store,
		evaluatorSvc: evaluatorSvc,
		gateway:      gateway,
		persistor:    persistor,
		highRiskSet:  highRiskSet,
		deadline:     deadline,
	}
}

// Evaluate runs the full pipeline for one job. It tolerates redelivery: a
// transaction already COMPLETED is treated as a prior success (the job is
// simply acknowledged); one already PROCESSING is re-run from scratch,
// relying on the analysis insert's transaction-id uniqueness to make the
// persist step idempotent on conflict.
func (o *Orchestrator) Evaluate(ctx context.Context, job queue.Job) error {
	start := time.Now()
	evalCtx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	tx, err := o.txRepo.GetByID(evalCtx, job.TransactionID)
	if err != nil {
		return errs.New(errs.KindStage, "orchestrator.Evaluate", err)
	}
	if tx.Status == models.TransactionCompleted {
		log.Info().Str("transaction_id", tx.ID.String()).Msg("transaction already completed, skipping re-evaluation")
		return nil
	}

	if err := o.txRepo.MarkProcessing(evalCtx, tx.ID); err != nil {
		return errs.New(errs.KindPersistence, "orchestrator.markProcessing", err)
	}
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "pre-persist").Msg("transaction marked PROCESSING")

	write, err := o.run(evalCtx, *tx)
	if err != nil {
		if failErr := o.txRepo.MarkFailed(context.Background(), tx.ID); failErr != nil {
			log.Error().Err(failErr).Str("transaction_id", tx.ID.String()).Msg("failed to mark transaction failed after pipeline error")
		}
		return err
	}

	write.Analysis.ProcessingTimeSeconds = time.Since(start).Seconds()
	if err := o.persistor.Commit(evalCtx, write); err != nil {
		return err
	}

	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "complete").
		Float64("score", write.Analysis.ComplianceScore).
		Str("band", string(write.Analysis.RiskBand)).
		Msg("evaluation complete")
	return nil
}

func (o *Orchestrator) run(ctx context.Context, tx models.Transaction) (persistence.Write, error) {
	history, err := o.txRepo.HistoryForCustomer(ctx, tx.CustomerID, tx.ID, tx.BookingDateTime.Add(-historyWindow))
	if err != nil {
		return persistence.Write{}, errs.New(errs.KindStage, "orchestrator.contextBuilder", err)
	}
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "context_builder").Int("history_size", len(history)).Msg("stage complete")

	queries := buildQueries(tx)
	filters := rulestore.Filters{BookingDate: tx.BookingDateTime, OnlyActive: true}
	if tx.OriginatorCountry != "" {
		filters.Jurisdictions = append(filters.Jurisdictions, tx.OriginatorCountry)
	}
	if tx.BeneficiaryCountry != "" {
		filters.Jurisdictions = append(filters.Jurisdictions, tx.BeneficiaryCountry)
	}

	internalRules, err := o.store.SearchInternal(ctx, queries, 20, filters)
	if err != nil {
		return persistence.Write{}, errs.New(errs.KindStage, "orchestrator.retrieval", err)
	}
	externalRules, err := o.store.SearchExternal(ctx, queries, 20, filters)
	if err != nil {
		return persistence.Write{}, errs.New(errs.KindStage, "orchestrator.retrieval", err)
	}
	retrieved := dedupRetrieved(append(internalRules, externalRules...))
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "retrieval").Int("rules", len(retrieved)).Msg("stage complete")

	evalResult, err := o.evaluatorSvc.Evaluate(ctx, tx, retrieved)
	if err != nil {
		return persistence.Write{}, err
	}
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "applicability_evidence_controltest").
		Int("applicable", len(evalResult.ApplicableRuleScores)).Int("controls", len(evalResult.ControlResults)).
		Int("warnings", len(evalResult.Warnings)).Msg("stage complete")

	fv := features.Compute(tx, history)
	fv.IsHighRiskCountry = isHighRiskCountry(tx, o.highRiskSet)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "feature_engine").Msg("stage complete")

	posterior := bayes.Update(tx.CustomerRiskRating, evalResult.ControlResults, fv)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "bayesian_engine").Msg("stage complete")

	patternScores := patterns.Compute(tx, history)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "pattern_engine").Msg("stage complete")

	risk := fusion.Fuse(evalResult.ControlResults, posterior, patternScores)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "risk_fusion").Float64("score", risk.Score).Msg("stage complete")

	summary := o.writeAnalystSummary(ctx, tx, evalResult, risk)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "analyst_writer").Msg("stage complete")

	now := time.Now().UTC()
	classifyInput := alerts.Input{
		Transaction:    tx,
		Risk:           risk,
		Patterns:       patternScores,
		Features:       fv,
		ControlResults: evalResult.ControlResults,
		EvidenceMaps:   evalResult.EvidenceMaps,
	}
	generatedAlerts := alerts.Classify(classifyInput, now)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "alert_classifier").Int("alerts", len(generatedAlerts)).Msg("stage complete")

	remediations := alerts.Remediate(classifyInput, generatedAlerts)
	log.Info().Str("transaction_id", tx.ID.String()).Str("stage", "remediation_orchestrator").Int("actions", len(remediations)).Msg("stage complete")

	analysis := models.ComplianceAnalysis{
		TransactionID:   tx.ID,
		ComplianceScore: risk.Score,
		RiskBand:        risk.Band,
		ApplicableRules: evalResult.ApplicableRuleScores,
		EvidenceMap:     evalResult.EvidenceMaps,
		ControlResults:  evalResult.ControlResults,
		PatternScores:   patternScores,
		BayesianSummary: models.BayesianSummaryScalar(posterior),
		AnalystSummary:  summary,
		CreatedAt:       now,
	}

	return persistence.Write{
		TransactionID: tx.ID,
		Analysis:      analysis,
		Alerts:        generatedAlerts,
		Remediations:  remediations,
	}, nil
}

const analystWriterSystemPrompt = `You are an AML compliance analyst. Summarize the evaluation of a transaction in at most 3 sentences, citing rule ids where relevant. Plain text only, no markdown.`

// writeAnalystSummary is advisory: a failure here never fails the
// evaluation, it simply leaves the summary empty.
func (o *Orchestrator) writeAnalystSummary(ctx context.Context, tx models.Transaction, result evaluator.Result, risk models.RiskAssessment) string {
	var ruleIDs []string
	for _, r := range result.ApplicableRuleScores {
		ruleIDs = append(ruleIDs, r.RuleID)
	}

	prompt := fmt.Sprintf(
		"Transaction %s: amount=%.2f %s, score=%.1f, band=%s. Applicable rules: %s.",
		tx.BusinessID, tx.Amount, tx.Currency, risk.Score, risk.Band, strings.Join(ruleIDs, ", "),
	)

	resp, err := o.gateway.Call(ctx, llmgateway.Request{
		SystemPrompt:    analystWriterSystemPrompt,
		Prompt:          prompt,
		ResponseFormat:  llmgateway.FormatText,
		MaxOutputTokens: 300,
		Temperature:     0.2,
	})
	if err != nil {
		log.Warn().Err(err).Str("transaction_id", tx.ID.String()).Msg("analyst summary generation failed, leaving empty")
		return ""
	}

	summary := resp.Text
	const maxBytes = 2048
	if len(summary) > maxBytes {
		summary = summary[:maxBytes]
	}
	return summary
}

func buildQueries(tx models.Transaction) []string {
	queries := []string{
		fmt.Sprintf("AML obligations for %s risk customer on %s channel", tx.CustomerRiskRating, tx.Channel),
	}
	if tx.IsCrossBorder() {
		queries = append(queries, fmt.Sprintf("cross-border wire transfer %s to %s travel rule", tx.OriginatorCountry, tx.BeneficiaryCountry))
	}
	if tx.PEPIndicator {
		queries = append(queries, "politically exposed person enhanced due diligence")
	}
	if tx.Amount >= 10000 {
		queries = append(queries, "large value transaction reporting threshold")
	}
	if tx.SwiftMessageType != "" {
		queries = append(queries, fmt.Sprintf("SWIFT %s message compliance requirements", tx.SwiftMessageType))
	}
	queries = append(queries, fmt.Sprintf("%s product %s originator country sanctions screening", tx.Product, tx.OriginatorCountry))
	return queries
}

// maxCombinedRules bounds the deduped internal+external rule set handed to
// the evaluator, per the retrieval stage's combined-corpus contract.
const maxCombinedRules = 30

// dedupRetrieved merges the internal and external corpus hits, keeping the
// higher-scored entry per rule ID, then returns them sorted by score
// descending and capped to maxCombinedRules. Map iteration order is
// unspecified, so the sort is required for run-to-run determinism, not
// just presentation.
func dedupRetrieved(rules []models.RetrievedRule) []models.RetrievedRule {
	seen := map[string]models.RetrievedRule{}
	for _, r := range rules {
		existing, ok := seen[r.Rule.ID]
		if !ok || r.Score > existing.Score {
			seen[r.Rule.ID] = r
		}
	}
	out := make([]models.RetrievedRule, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	rulestore.SortByScoreDesc(out)
	if len(out) > maxCombinedRules {
		out = out[:maxCombinedRules]
	}
	return out
}

func isHighRiskCountry(tx models.Transaction, set map[string]struct{}) bool {
	if _, ok := set[tx.OriginatorCountry]; ok {
		return true
	}
	_, ok := set[tx.BeneficiaryCountry]
	return ok
}
