package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/configs"
	"github.com/enterprise/aml-compliance/internal/evaluator"
	"github.com/enterprise/aml-compliance/internal/features"
	"github.com/enterprise/aml-compliance/internal/integrity"
	"github.com/enterprise/aml-compliance/internal/llmgateway"
	"github.com/enterprise/aml-compliance/internal/orchestrator"
	"github.com/enterprise/aml-compliance/internal/persistence"
	"github.com/enterprise/aml-compliance/internal/queue"
	"github.com/enterprise/aml-compliance/internal/repositories"
	"github.com/enterprise/aml-compliance/internal/rulestore"
)

func main() {
	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Server.Environment)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("starting AML compliance worker")

	db, err := repositories.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	jobQueue, err := queue.New(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to job queue")
	}
	defer jobQueue.Close()

	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open rule store pool")
	}
	defer pool.Close()

	internalIndex, err := rulestore.OpenIndex(cfg.RuleStore.BleveIndexPath + "/internal")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open internal rule index")
	}
	externalIndex, err := rulestore.OpenIndex(cfg.RuleStore.BleveIndexPath + "/external")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open external rule index")
	}
	store := rulestore.New(pool, internalIndex, externalIndex, cfg.RuleStore.InternalEmbeddingTable, cfg.RuleStore.ExternalEmbeddingTable)

	txRepo := repositories.NewTransactionRepository(db)
	analysisRepo := repositories.NewAnalysisRepository(db)

	gateway := llmgateway.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.GlobalSemaphore, cfg.LLM.RequestTimeout)
	evaluatorSvc := evaluator.New(gateway, cfg.LLM.PerEvaluationConcurrency)
	persistor := persistence.New(db)

	deadline := time.Duration(cfg.Worker.EvaluationDeadlineSeconds) * time.Second
	orch := orchestrator.New(txRepo, analysisRepo, store, evaluatorSvc, gateway, persistor, highRiskCountrySet(cfg), deadline)
	workerPool := orchestrator.NewWorkerPool(cfg.Worker.Concurrency, orch, jobQueue, cfg.Worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := integrity.New(txRepo, cfg.Monitoring)
	go monitor.Run(ctx)

	workerPool.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	cancel()
	workerPool.Stop()

	log.Info().Msg("worker shutdown complete")
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// highRiskCountrySet starts from the feature engine's frozen default and
// replaces it wholesale when HIGH_RISK_COUNTRY_SET is configured.
func highRiskCountrySet(cfg *configs.Config) map[string]struct{} {
	if override := cfg.HighRiskCountrySetOverride(); len(override) > 0 {
		set := make(map[string]struct{}, len(override))
		for _, c := range override {
			set[c] = struct{}{}
		}
		return set
	}
	return features.HighRiskCountrySetV1
}
