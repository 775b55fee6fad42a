package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"leaseguard-backend/config"
	"leaseguard-backend/handlers"
	"leaseguard-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(registry)

	// Initialize analysis client; a missing API key stops the server here
	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		logger.Fatal("Invalid Gemini configuration", zap.Error(err))
	}
	analysisClient, err := service.NewAnalysisClient(clientConfig,
		service.ClientWithLogger(logger.Named("gemini")),
		service.ClientWithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("Failed to initialize analysis client", zap.Error(err))
	}

	if cfg.Gemini.VerifyModels {
		verifyModels(cfg.Gemini.APIKey, analysisClient.Endpoints(), logger)
	}

	keywordAnalyzer, err := service.NewKeywordAnalyzer()
	if err != nil {
		logger.Fatal("Failed to load clause patterns", zap.Error(err))
	}

	// Initialize services
	analysisService := service.NewAnalysisService(
		service.AnalysisWithRemoteClient(analysisClient),
		service.AnalysisWithFallback(keywordAnalyzer),
		service.AnalysisWithLogger(logger.Named("analysis")),
		service.AnalysisWithMetrics(metrics),
		service.AnalysisWithTimeout(cfg.Analysis.Timeout),
		service.AnalysisWithMaxChars(cfg.Analysis.MaxChars),
	)

	// Initialize handlers
	analysisHandler := handlers.NewAnalysisHandler(analysisService, logger.Named("http"), cfg.Server.MaxUploadBytes)

	// Setup Gin router
	r := gin.Default()
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	r.Use(handlers.RequestID())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/taxonomy", analysisHandler.Taxonomy)
		api.POST("/analyze", analysisHandler.Analyze)
		api.POST("/analyze/upload", analysisHandler.UploadAndAnalyze)
	}

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("endpoint_variants", len(analysisClient.Endpoints())),
		zap.Duration("analysis_timeout", cfg.Analysis.Timeout),
	)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// verifyModels checks the configured models against the catalog visible to the key.
// Failures are logged and never stop the server.
func verifyModels(apiKey string, endpoints []service.EndpointVariant, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := service.NewGeminiClient(ctx, apiKey)
	if err != nil {
		logger.Warn("Skipping model catalog check", zap.Error(err))
		return
	}
	defer client.Close()

	if _, err := service.VerifyEndpointModels(ctx, client, endpoints, logger.Named("catalog")); err != nil {
		logger.Warn("Model catalog check failed", zap.Error(err))
	}
}
