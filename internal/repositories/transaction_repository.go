package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/enterprise/aml-compliance/internal/models"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction (business_id already submitted)")
)

// TransactionRepository handles transaction persistence. BusinessID carries
// the caller's idempotency key: a repeat submission of the same BusinessID
// is rejected rather than silently re-processed.
type TransactionRepository struct {
	db *Database
}

func NewTransactionRepository(db *Database) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction in PENDING status.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, raw_payload
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
	`

	tx.ID = uuid.New()
	tx.CreatedAt = time.Now().UTC()
	tx.Status = models.TransactionPending

	rawBytes, _ := tx.RawPayload.Value()

	_, err := r.db.Pool.Exec(ctx, query,
		tx.ID, tx.BusinessID, tx.Amount, tx.Currency, tx.BookingDateTime, tx.ValueDate,
		tx.OriginatorName, tx.OriginatorAccount, tx.OriginatorCountry,
		tx.BeneficiaryName, tx.BeneficiaryAccount, tx.BeneficiaryCountry,
		tx.CustomerID, tx.CustomerRiskRating, tx.CustomerKYCDate, tx.Channel, tx.Product,
		tx.SwiftMessageType, tx.SwiftPurposeCode, tx.SwiftCharges,
		tx.TravelRuleComplete, tx.IsFX, tx.PEPIndicator, tx.SanctionsScreening,
		tx.Status, tx.CreatedAt, rawBytes,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// GetByID retrieves a single transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, processing_started_at, processing_completed_at, raw_payload
		FROM transactions WHERE id = $1
	`
	row := r.db.Pool.QueryRow(ctx, query, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByBusinessID supports idempotency checks on resubmission.
func (r *TransactionRepository) GetByBusinessID(ctx context.Context, businessID string) (*models.Transaction, error) {
	query := `
		SELECT id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, processing_started_at, processing_completed_at, raw_payload
		FROM transactions WHERE business_id = $1
	`
	row := r.db.Pool.QueryRow(ctx, query, businessID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// MarkProcessing transitions a transaction to PROCESSING, stamping the
// start time. Called before the pipeline begins so a crashed worker leaves
// a visible in-flight marker rather than silence.
func (r *TransactionRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE transactions SET status = $2, processing_started_at = $3 WHERE id = $1`,
		id, models.TransactionProcessing, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// MarkFailed transitions a transaction to FAILED in its own transaction,
// independent of whatever write failed in the main pipeline transaction.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`,
		id, models.TransactionFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// CompleteTx marks a transaction COMPLETED using the given pgx.Tx, for use
// inside the persistor's single commit.
func CompleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $2, processing_completed_at = $3 WHERE id = $1`,
		id, models.TransactionCompleted, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// GetTxByID re-reads a transaction within an existing pgx.Tx.
func GetTxByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, processing_started_at, processing_completed_at, raw_payload
		FROM transactions WHERE id = $1 FOR UPDATE
	`
	row := tx.QueryRow(ctx, query, id)
	return scanTransaction(row)
}

// HistoryForCustomer retrieves a customer's transactions in the lookback
// window, used by the feature engine and pattern engine to compute
// velocity and circular-transfer signals. Excludes the transaction itself.
func (r *TransactionRepository) HistoryForCustomer(ctx context.Context, customerID string, excludeID uuid.UUID, since time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, processing_started_at, processing_completed_at, raw_payload
		FROM transactions
		WHERE customer_id = $1 AND id != $2 AND booking_datetime >= $3
		ORDER BY booking_datetime DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, customerID, excludeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByStatus supports the monitoring API's status_filter query parameter.
func (r *TransactionRepository) ListByStatus(ctx context.Context, status models.TransactionStatus, p models.Pagination) ([]models.Transaction, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, business_id, amount, currency, booking_datetime, value_date,
			originator_name, originator_account, originator_country,
			beneficiary_name, beneficiary_account, beneficiary_country,
			customer_id, customer_risk_rating, customer_kyc_date, channel, product,
			swift_message_type, swift_purpose_code, swift_charges,
			travel_rule_complete, is_fx, pep_indicator, sanctions_screening_result,
			status, created_at, processing_started_at, processing_completed_at, raw_payload
		FROM transactions WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, status, p.Limit, p.Skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

// ListCompletedWithoutAnalysis backs the integrity monitor's scan for
// transactions that reached COMPLETED without a stored ComplianceAnalysis.
func (r *TransactionRepository) ListCompletedWithoutAnalysis(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.business_id, t.amount, t.currency, t.booking_datetime, t.value_date,
			t.originator_name, t.originator_account, t.originator_country,
			t.beneficiary_name, t.beneficiary_account, t.beneficiary_country,
			t.customer_id, t.customer_risk_rating, t.customer_kyc_date, t.channel, t.product,
			t.swift_message_type, t.swift_purpose_code, t.swift_charges,
			t.travel_rule_complete, t.is_fx, t.pep_indicator, t.sanctions_screening_result,
			t.status, t.created_at, t.processing_started_at, t.processing_completed_at, t.raw_payload
		FROM transactions t
		LEFT JOIN compliance_analyses ca ON ca.transaction_id = t.id
		WHERE t.status = $1 AND t.processing_completed_at >= $2 AND ca.id IS NULL
	`
	rows, err := r.db.Pool.Query(ctx, query, models.TransactionCompleted, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var rawBytes []byte

	err := row.Scan(
		&t.ID, &t.BusinessID, &t.Amount, &t.Currency, &t.BookingDateTime, &t.ValueDate,
		&t.OriginatorName, &t.OriginatorAccount, &t.OriginatorCountry,
		&t.BeneficiaryName, &t.BeneficiaryAccount, &t.BeneficiaryCountry,
		&t.CustomerID, &t.CustomerRiskRating, &t.CustomerKYCDate, &t.Channel, &t.Product,
		&t.SwiftMessageType, &t.SwiftPurposeCode, &t.SwiftCharges,
		&t.TravelRuleComplete, &t.IsFX, &t.PEPIndicator, &t.SanctionsScreening,
		&t.Status, &t.CreatedAt, &t.ProcessingStartedAt, &t.ProcessingCompletedAt, &rawBytes,
	)
	if err != nil {
		return nil, err
	}
	_ = t.RawPayload.Scan(rawBytes)
	return t, nil
}
