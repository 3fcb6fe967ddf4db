package repositories

import (
	"encoding/json"
	"errors"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

var ErrAnalysisNotFound = errors.New("compliance analysis not found")

// AnalysisRepository handles ComplianceAnalysis persistence. Writes happen
// exclusively through InsertTx inside the persistor's single transaction;
// reads are plain pool queries.
type AnalysisRepository struct {
	db *Database
}

func NewAnalysisRepository(db *Database) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// InsertTx inserts a ComplianceAnalysis row within the caller's transaction
// and assigns a fresh ID.
func InsertTx(ctx context.Context, tx pgx.Tx, a *models.ComplianceAnalysis) error {
	a.ID = uuid.New()

	applicableRules, err := json.Marshal(a.ApplicableRules)
	if err != nil {
		return err
	}
	evidenceMap, err := json.Marshal(a.EvidenceMap)
	if err != nil {
		return err
	}
	controlResults, err := json.Marshal(a.ControlResults)
	if err != nil {
		return err
	}
	patternScores, err := json.Marshal(a.PatternScores)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO compliance_analyses (
			id, transaction_id, compliance_score, risk_band,
			applicable_rules, evidence_map, control_results, pattern_scores,
			bayesian_summary, analyst_summary, processing_time_seconds, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		a.ID, a.TransactionID, a.ComplianceScore, a.RiskBand,
		applicableRules, evidenceMap, controlResults, patternScores,
		a.BayesianSummary, a.AnalystSummary, a.ProcessingTimeSeconds, a.CreatedAt,
	)
	return err
}

// GetTxByTransactionID re-reads a just-inserted analysis within the caller's
// transaction, the read-back verification step required before commit.
func GetTxByTransactionID(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID) (*models.ComplianceAnalysis, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, transaction_id, compliance_score, risk_band,
			applicable_rules, evidence_map, control_results, pattern_scores,
			bayesian_summary, analyst_summary, processing_time_seconds, created_at
		FROM compliance_analyses WHERE transaction_id = $1
	`, transactionID)
	return scanAnalysis(row)
}

// GetByTransactionID is the post-commit read path used by the API and the
// integrity monitor.
func (r *AnalysisRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.ComplianceAnalysis, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, transaction_id, compliance_score, risk_band,
			applicable_rules, evidence_map, control_results, pattern_scores,
			bayesian_summary, analyst_summary, processing_time_seconds, created_at
		FROM compliance_analyses WHERE transaction_id = $1
	`, transactionID)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAnalysis(row rowScanner) (*models.ComplianceAnalysis, error) {
	a := &models.ComplianceAnalysis{}
	var applicableRules, evidenceMap, controlResults, patternScores []byte

	err := row.Scan(
		&a.ID, &a.TransactionID, &a.ComplianceScore, &a.RiskBand,
		&applicableRules, &evidenceMap, &controlResults, &patternScores,
		&a.BayesianSummary, &a.AnalystSummary, &a.ProcessingTimeSeconds, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(applicableRules, &a.ApplicableRules); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(evidenceMap, &a.EvidenceMap); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(controlResults, &a.ControlResults); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patternScores, &a.PatternScores); err != nil {
		return nil, err
	}
	return a, nil
}
