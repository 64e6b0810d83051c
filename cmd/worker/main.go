package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/vodworks/encode-worker/internal/catalog"
	"github.com/vodworks/encode-worker/internal/config"
	"github.com/vodworks/encode-worker/internal/health"
	"github.com/vodworks/encode-worker/internal/logger"
	"github.com/vodworks/encode-worker/internal/observability"
	"github.com/vodworks/encode-worker/internal/transcoder"
	"github.com/vodworks/encode-worker/internal/worker"
)

const (
	AWSConfigTimeout = 10 * time.Second
	ShutdownTimeout  = 5 * time.Second
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		logger.Info(context.Background(), log, "No .env file found, relying on system ENV variables")
	}

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.Error(context.Background(), log, "Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "encode-worker",
		cfg.Observability.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logger.Error(context.Background(), log, "Failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error(context.Background(), log, "Failed to shutdown tracer", "error", err)
		}
	}()

	// AWS clients
	awsCtx, awsCancel := context.WithTimeout(context.Background(), AWSConfigTimeout)
	defer awsCancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(awsCtx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error(context.Background(), log, "Failed to load AWS config", "error", err)
		os.Exit(1)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	s3Client := s3.NewFromConfig(awsCfg)
	sqsClient := sqs.NewFromConfig(awsCfg)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	videoCatalog := catalog.NewRepositoryFromClient(dynamoClient, cfg.AWS.DynamoDBTable)

	w := worker.New(&worker.Config{
		S3Client:  s3Client,
		SQSClient: sqsClient,
		Engine:    transcoder.NewEngine(log),
		Catalog:   videoCatalog,
		AppConfig: cfg,
		Logger:    log,
	})

	// Health checker and metrics server
	checker := health.NewChecker(&health.Config{
		ServiceName:    "encode-worker",
		S3Client:       s3Client,
		SQSClient:      sqsClient,
		DynamoDBClient: dynamoClient,
		S3Bucket:       cfg.AWS.SourceBucket,
		SQSQueueURL:    cfg.AWS.SQSQueueURL,
		DynamoDBTable:  cfg.AWS.DynamoDBTable,
		FFmpegPath:     "ffmpeg",
		Logger:         log,
		CacheTTL:       health.DefaultCacheTTL,
		CheckTimeout:   health.DefaultCheckTimeout,
		DeepCheckLimit: health.DefaultDeepCheckLimit,
	})

	metricsServer := startMetricsServer(cfg.Worker.MetricsPort, checker, log)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info(context.Background(), log, "Shutting down worker...")
		cancel()
	}()

	// Block polling the queue until cancelled
	w.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), log, "Failed to shutdown metrics server", "error", err)
	}
}

func startMetricsServer(port int, checker *health.Checker, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", checker.Handler())
	mux.HandleFunc("/health/deep", checker.DeepHandler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(context.Background(), log, "Starting metrics server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), log, "Metrics server error", "error", err)
		}
	}()

	return srv
}
