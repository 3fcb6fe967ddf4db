package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

// AlertRepository handles Alert and Case persistence. Both are written
// exclusively inside the persistor's single transaction.
type AlertRepository struct {
	db *Database
}

func NewAlertRepository(db *Database) *AlertRepository {
	return &AlertRepository{db: db}
}

// InsertAlertsTx bulk-inserts alerts generated for one transaction.
func InsertAlertsTx(ctx context.Context, tx pgx.Tx, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range alerts {
		remediation, err := json.Marshal(a.RemediationWorkflow)
		if err != nil {
			return err
		}
		contextBytes, err := a.Context.Value()
		if err != nil {
			return err
		}
		evidenceBytes, err := a.Evidence.Value()
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO alerts (
				id, transaction_id, role, alert_type, severity, title, description,
				context, evidence, remediation_workflow, created_at, sla_deadline, status
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
			a.ID, a.TransactionID, a.Role, a.AlertType, a.Severity, a.Title, a.Description,
			contextBytes, evidenceBytes, remediation, a.CreatedAt, a.SLADeadline, a.Status,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range alerts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertCaseTx inserts a Case for a Critical-band evaluation.
func InsertCaseTx(ctx context.Context, tx pgx.Tx, c *models.Case) error {
	c.ID = uuid.New()
	_, err := tx.Exec(ctx, `
		INSERT INTO cases (id, transaction_id, alert_ids, created_at)
		VALUES ($1,$2,$3,$4)
	`, c.ID, c.TransactionID, c.AlertIDs, c.CreatedAt)
	return err
}

// ListByTransactionID returns all alerts raised for a transaction.
func (r *AlertRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.Alert, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, transaction_id, role, alert_type, severity, title, description,
			context, evidence, remediation_workflow, created_at, sla_deadline, status
		FROM alerts WHERE transaction_id = $1
		ORDER BY created_at ASC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListByRole backs role-scoped alert queues (Front/Compliance/Legal).
func (r *AlertRepository) ListByRole(ctx context.Context, role models.AlertRole, p models.Pagination) ([]models.Alert, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, transaction_id, role, alert_type, severity, title, description,
			context, evidence, remediation_workflow, created_at, sla_deadline, status
		FROM alerts WHERE role = $1
		ORDER BY sla_deadline ASC
		LIMIT $2 OFFSET $3
	`, role, p.Limit, p.Skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	a := &models.Alert{}
	var contextBytes, evidenceBytes, remediationBytes []byte

	err := row.Scan(
		&a.ID, &a.TransactionID, &a.Role, &a.AlertType, &a.Severity, &a.Title, &a.Description,
		&contextBytes, &evidenceBytes, &remediationBytes, &a.CreatedAt, &a.SLADeadline, &a.Status,
	)
	if err != nil {
		return nil, err
	}
	if err := a.Context.Scan(contextBytes); err != nil {
		return nil, err
	}
	if err := a.Evidence.Scan(evidenceBytes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(remediationBytes, &a.RemediationWorkflow); err != nil {
		return nil, err
	}
	return a, nil
}
