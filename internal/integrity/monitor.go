// Package integrity runs an out-of-band scheduled check for the guarantee
// the pipeline is supposed to hold: every COMPLETED transaction has a
// stored ComplianceAnalysis.
package integrity

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/configs"
	"github.com/enterprise/aml-compliance/internal/repositories"
)

// Monitor is a ticker-driven loop grounded on the teacher's
// startMetricsReporter (cmd/kafka-worker/main.go), retargeted from periodic
// metrics logging to a periodic invariant scan.
type Monitor struct {
	txRepo            *repositories.TransactionRepository
	lookback          time.Duration
	scanInterval      time.Duration
	demoteOnViolation bool
}

func New(txRepo *repositories.TransactionRepository, cfg configs.MonitoringConfig) *Monitor {
	return &Monitor{
		txRepo:            txRepo,
		lookback:          time.Duration(cfg.LookbackHours) * time.Hour,
		scanInterval:      cfg.ScanInterval,
		demoteOnViolation: cfg.DemoteOnViolation,
	}
}

// Run scans on a fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.scanInterval).Dur("lookback", m.lookback).Msg("integrity monitor started")

	for {
		select {
		case <-ticker.C:
			if err := m.scan(ctx); err != nil {
				log.Error().Err(err).Msg("integrity scan failed")
			}
		case <-ctx.Done():
			log.Info().Msg("integrity monitor stopping")
			return
		}
	}
}

func (m *Monitor) scan(ctx context.Context) error {
	since := time.Now().UTC().Add(-m.lookback)
	violations, err := m.txRepo.ListCompletedWithoutAnalysis(ctx, since)
	if err != nil {
		return err
	}

	if len(violations) == 0 {
		log.Debug().Msg("integrity scan found no violations")
		return nil
	}

	log.Warn().Int("count", len(violations)).Msg("integrity scan found COMPLETED transactions without a compliance analysis")

	for _, tx := range violations {
		log.Warn().Str("transaction_id", tx.ID.String()).Msg("compliance analysis missing for completed transaction")
		if !m.demoteOnViolation {
			continue
		}
		if err := m.txRepo.MarkFailed(ctx, tx.ID); err != nil {
			log.Error().Err(err).Str("transaction_id", tx.ID.String()).Msg("failed to demote transaction to FAILED")
		}
	}
	return nil
}
