package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

// RemediationRepository handles read access to remediation actions.
// Writes go through InsertRemediationActionsTx inside the persistor.
type RemediationRepository struct {
	db *Database
}

func NewRemediationRepository(db *Database) *RemediationRepository {
	return &RemediationRepository{db: db}
}

// InsertRemediationActionsTx persists the RemediationOrchestrator's output
// alongside the alerts it was derived from, in the same transaction.
func InsertRemediationActionsTx(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, actions []models.RemediationAction) error {
	if len(actions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range actions {
		detailsBytes, err := a.Details.Value()
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO remediation_actions (
				id, transaction_id, type, owner, sla_hours, linked_alert_ids, details, created_at
			) VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, now())
		`, transactionID, a.Type, a.Owner, a.SLAHours, a.LinkedAlertIDs, detailsBytes)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range actions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByTransactionID returns the remediation actions derived for a
// transaction's evaluation.
func (r *RemediationRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.RemediationAction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT type, owner, sla_hours, linked_alert_ids, details
		FROM remediation_actions WHERE transaction_id = $1
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RemediationAction
	for rows.Next() {
		var a models.RemediationAction
		var detailsBytes []byte
		if err := rows.Scan(&a.Type, &a.Owner, &a.SLAHours, &a.LinkedAlertIDs, &detailsBytes); err != nil {
			return nil, err
		}
		if err := a.Details.Scan(detailsBytes); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
