package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/configs"
	"github.com/enterprise/aml-compliance/internal/models"
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
		Str("port", cfg.Server.Port).
		Msg("starting AML compliance API server")

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

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())

	setupRoutes(router, db, txRepo, analysisRepo, store, jobQueue)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
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

func setupRoutes(
	router *gin.Engine,
	db *repositories.Database,
	txRepo *repositories.TransactionRepository,
	analysisRepo *repositories.AnalysisRepository,
	store *rulestore.Store,
	jobQueue *queue.Queue,
) {
	router.GET("/health", func(c *gin.Context) {
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Format(time.RFC3339)})
	})

	txRoutes := router.Group("/transactions")
	{
		txRoutes.POST("", submitTransactionHandler(txRepo, jobQueue))
		txRoutes.GET("", listTransactionsHandler(txRepo))
		txRoutes.GET("/:id/status", transactionStatusHandler(txRepo, analysisRepo))
		txRoutes.GET("/:id/compliance", transactionComplianceHandler(txRepo, analysisRepo))
	}

	router.POST("/internal_rules", upsertInternalRuleHandler(store))

	monitoring := router.Group("/monitoring/persistence")
	{
		monitoring.GET("/integrity", integrityHandler(txRepo))
		monitoring.GET("/health", persistenceHealthHandler(db, txRepo))
		monitoring.GET("/verify/:transaction_id", verifyHandler(txRepo, analysisRepo))
	}
}

// Middleware

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("request_id", c.GetString("request_id")).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}

// Handlers

func submitTransactionHandler(txRepo *repositories.TransactionRepository, jobQueue *queue.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tx models.Transaction
		if err := c.ShouldBindJSON(&tx); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if existing, err := txRepo.GetByBusinessID(c.Request.Context(), tx.BusinessID); err == nil {
			taskID, enqueueErr := jobQueue.Enqueue(c.Request.Context(), queue.Job{TransactionID: existing.ID})
			if enqueueErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue evaluation"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"transaction_id": existing.ID, "task_id": taskID, "status": "queued"})
			return
		}

		if err := txRepo.Create(c.Request.Context(), &tx); err != nil {
			if err == repositories.ErrDuplicateTransaction {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store transaction"})
			return
		}

		taskID, err := jobQueue.Enqueue(c.Request.Context(), queue.Job{TransactionID: tx.ID})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue evaluation"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"transaction_id": tx.ID, "task_id": taskID, "status": "queued"})
	}
}

func listTransactionsHandler(txRepo *repositories.TransactionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.TransactionStatus(c.DefaultQuery("status_filter", string(models.TransactionPending)))

		skip := queryInt(c, "skip", 0)
		limit := queryInt(c, "limit", 20)
		if limit > 100 {
			limit = 100
		}

		txs, total, err := txRepo.ListByStatus(c.Request.Context(), status, models.Pagination{Skip: skip, Limit: limit})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"transactions": txs, "skip": skip, "limit": limit, "total": total})
	}
}

func transactionStatusHandler(txRepo *repositories.TransactionRepository, analysisRepo *repositories.AnalysisRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
			return
		}

		tx, err := txRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}

		resp := gin.H{
			"transaction_id": tx.ID,
			"task_status":    tx.Status,
		}
		if analysis, err := analysisRepo.GetByTransactionID(c.Request.Context(), id); err == nil {
			resp["risk_score"] = analysis.ComplianceScore
			resp["risk_band"] = analysis.RiskBand
		}

		c.JSON(http.StatusOK, resp)
	}
}

func transactionComplianceHandler(txRepo *repositories.TransactionRepository, analysisRepo *repositories.AnalysisRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
			return
		}

		if _, err := txRepo.GetByID(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}

		analysis, err := analysisRepo.GetByTransactionID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "compliance analysis not found"})
			return
		}

		c.JSON(http.StatusOK, analysis)
	}
}

func upsertInternalRuleHandler(store *rulestore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.Rule
		if err := c.ShouldBindJSON(&rule); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.UpsertInternal(c.Request.Context(), rule); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upsert rule"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"rule_id": rule.ID, "version": rule.Version, "status": "upserted"})
	}
}

func integrityHandler(txRepo *repositories.TransactionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		lookbackHours := queryInt(c, "lookback_hours", 24)
		since := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

		violations, err := txRepo.ListCompletedWithoutAnalysis(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "integrity scan failed"})
			return
		}

		_, total, err := txRepo.ListByStatus(c.Request.Context(), models.TransactionCompleted, models.Pagination{Skip: 0, Limit: 1})
		if err != nil {
			total = 0
		}

		details := make([]gin.H, 0, len(violations))
		for _, v := range violations {
			details = append(details, gin.H{"transaction_id": v.ID, "completed_at": v.ProcessingCompletedAt})
		}

		status := "ok"
		if len(violations) > 0 {
			status = "violations_found"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":            status,
			"total_completed":   total,
			"violations":        len(violations),
			"violation_details": details,
		})
	}
}

func persistenceHealthHandler(db *repositories.Database, txRepo *repositories.TransactionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		since := time.Now().UTC().Add(-24 * time.Hour)
		violations, err := txRepo.ListCompletedWithoutAnalysis(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "health check failed"})
			return
		}

		_, completedTotal, err := txRepo.ListByStatus(c.Request.Context(), models.TransactionCompleted, models.Pagination{Skip: 0, Limit: 1})
		if err != nil {
			completedTotal = 0
		}

		stats := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"integrity_ok":     len(violations) == 0,
			"completed_count":  completedTotal,
			"violations_found": len(violations),
			"pool": gin.H{
				"total_conns":    stats.TotalConns(),
				"idle_conns":     stats.IdleConns(),
				"acquired_conns": stats.AcquiredConns(),
			},
		})
	}
}

func verifyHandler(txRepo *repositories.TransactionRepository, analysisRepo *repositories.AnalysisRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("transaction_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
			return
		}

		tx, err := txRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}

		_, analysisErr := analysisRepo.GetByTransactionID(c.Request.Context(), id)
		c.JSON(http.StatusOK, gin.H{
			"transaction_id":       id,
			"status":               tx.Status,
			"has_compliance_analysis": analysisErr == nil,
		})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return def
	}
	return v
}
