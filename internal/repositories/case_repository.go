package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

var ErrCaseNotFound = errors.New("case not found")

// CaseRepository handles read access to cases opened for Critical-band
// evaluations. Writes go through InsertCaseTx inside the persistor.
type CaseRepository struct {
	db *Database
}

func NewCaseRepository(db *Database) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Case, error) {
	c := &models.Case{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, transaction_id, alert_ids, created_at
		FROM cases WHERE transaction_id = $1
	`, transactionID).Scan(&c.ID, &c.TransactionID, &c.AlertIDs, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return c, nil
}
