// Package persistence commits one evaluation's full write set as a single
// atomic unit and verifies the commit by reading it back.
package persistence

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/internal/errs"
	"github.com/enterprise/aml-compliance/internal/models"
	"github.com/enterprise/aml-compliance/internal/repositories"
)

// Write is the complete set of records one evaluation produces.
type Write struct {
	TransactionID uuid.UUID
	Analysis      models.ComplianceAnalysis
	Alerts        []models.Alert
	Remediations  []models.RemediationAction
	Case          *models.Case // optional; for a Critical band Commit opens one from Alerts when nil
}

// Persistor commits a Write with the ordering required by §4.11: re-read
// the transaction for update, insert the analysis and read it back inside
// the same transaction, insert alerts, conditionally open a case, mark the
// transaction COMPLETED, and commit. Any failure marks the transaction
// FAILED in a separate transaction rather than leaving it PROCESSING.
type Persistor struct {
	db *repositories.Database
}

func New(db *repositories.Database) *Persistor {
	return &Persistor{db: db}
}

// Commit grounds the teacher's WithTransaction helper
// (internal/repositories/database.go) in the §4.11 write order.
func (p *Persistor) Commit(ctx context.Context, w Write) error {
	err := p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := repositories.GetTxByID(ctx, tx, w.TransactionID); err != nil {
			return errs.New(errs.KindPersistence, "persistor.reread", err)
		}

		if err := repositories.InsertTx(ctx, tx, &w.Analysis); err != nil {
			return errs.New(errs.KindPersistence, "persistor.insertAnalysis", err)
		}

		readBack, err := repositories.GetTxByTransactionID(ctx, tx, w.TransactionID)
		if err != nil {
			return errs.New(errs.KindInvariant, "persistor.readBackAnalysis", err)
		}
		if readBack.ID != w.Analysis.ID {
			return errs.New(errs.KindInvariant, "persistor.readBackAnalysis",
				errMismatch("compliance_analysis id mismatch after insert"))
		}

		for i := range w.Alerts {
			if w.Alerts[i].ID == "" {
				w.Alerts[i].ID = w.TransactionID.String() + "-" + strconv.Itoa(i+1)
			}
		}
		if err := repositories.InsertAlertsTx(ctx, tx, w.Alerts); err != nil {
			return errs.New(errs.KindPersistence, "persistor.insertAlerts", err)
		}

		if err := repositories.InsertRemediationActionsTx(ctx, tx, w.TransactionID, w.Remediations); err != nil {
			return errs.New(errs.KindPersistence, "persistor.insertRemediations", err)
		}

		if w.Analysis.RiskBand == models.BandCritical {
			c := w.Case
			if c == nil {
				c = &models.Case{TransactionID: w.TransactionID, CreatedAt: time.Now().UTC()}
			}
			if len(c.AlertIDs) == 0 {
				for _, a := range w.Alerts {
					c.AlertIDs = append(c.AlertIDs, a.ID)
				}
			}
			if err := repositories.InsertCaseTx(ctx, tx, c); err != nil {
				return errs.New(errs.KindPersistence, "persistor.insertCase", err)
			}
		}

		if err := repositories.CompleteTx(ctx, tx, w.TransactionID, time.Now().UTC()); err != nil {
			return errs.New(errs.KindPersistence, "persistor.completeTransaction", err)
		}

		return nil
	})

	if err != nil {
		log.Error().Err(err).Str("transaction_id", w.TransactionID.String()).Msg("persistor commit failed, marking transaction failed")
		if markErr := p.markFailed(ctx, w.TransactionID); markErr != nil {
			log.Error().Err(markErr).Str("transaction_id", w.TransactionID.String()).Msg("failed to mark transaction failed")
		}
		return err
	}

	if verr := p.verify(ctx, w.TransactionID); verr != nil {
		log.Error().Err(verr).Str("transaction_id", w.TransactionID.String()).Msg("post-commit verification failed")
		return verr
	}

	return nil
}

// markFailed runs in its own transaction, independent of whatever failed
// inside Commit's transaction, so a doomed write never leaves a
// transaction stuck in PROCESSING.
func (p *Persistor) markFailed(ctx context.Context, id uuid.UUID) error {
	txRepo := repositories.NewTransactionRepository(p.db)
	return txRepo.MarkFailed(ctx, id)
}

// verify re-reads the transaction and analysis after commit, outside any
// transaction, matching the invariant the integrity monitor independently
// re-checks on a schedule.
func (p *Persistor) verify(ctx context.Context, id uuid.UUID) error {
	txRepo := repositories.NewTransactionRepository(p.db)
	tx, err := txRepo.GetByID(ctx, id)
	if err != nil {
		return errs.New(errs.KindInvariant, "persistor.verify", err)
	}
	if tx.Status != models.TransactionCompleted {
		return errs.New(errs.KindInvariant, "persistor.verify", errMismatch("transaction not COMPLETED after commit"))
	}

	analysisRepo := repositories.NewAnalysisRepository(p.db)
	if _, err := analysisRepo.GetByTransactionID(ctx, id); err != nil {
		return errs.New(errs.KindInvariant, "persistor.verify", err)
	}
	return nil
}

type errMismatch string

func (e errMismatch) Error() string { return string(e) }
