package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all worker configuration.
type Config struct {
	Environment   string
	AWS           AWSConfig
	Worker        WorkerConfig
	Observability ObservabilityConfig
}

// AWSConfig holds AWS-specific configuration.
type AWSConfig struct {
	Region             string
	SourceBucket       string
	TargetBucket       string
	DemoBucket         string
	CDNDomain          string
	DemoCDNDomain      string
	SQSQueueURL        string
	DeadLetterQueueURL string
	DynamoDBTable      string
}

// WorkerConfig holds worker tuning parameters.
type WorkerConfig struct {
	MaxConcurrentJobs    int
	MaxRetries           int
	RenditionConcurrency int
	UploadConcurrency    int
	TranscodeTimeout     time.Duration
	UploadTimeout        time.Duration
	MetricsPort          int
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTLPEndpoint string
}

// Default values
const (
	DefaultRegion               = "us-west-2"
	DefaultMetricsPort          = 2112
	DefaultMaxConcurrentJobs    = 1
	DefaultMaxRetries           = 3
	DefaultRenditionConcurrency = 2
	DefaultUploadConcurrency    = 20
	DefaultTranscodeTimeout     = 30 * time.Minute
	DefaultUploadTimeout        = 10 * time.Minute
	DefaultOTLPEndpoint         = "localhost:4317"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "dev"),
		AWS: AWSConfig{
			Region:             getEnv("AWS_REGION", DefaultRegion),
			SourceBucket:       os.Getenv("SOURCE_BUCKET"),
			TargetBucket:       os.Getenv("TARGET_BUCKET"),
			DemoBucket:         os.Getenv("DEMO_BUCKET"),
			CDNDomain:          os.Getenv("CDN_DOMAIN"),
			DemoCDNDomain:      os.Getenv("DEMO_CDN_DOMAIN"),
			SQSQueueURL:        os.Getenv("SQS_QUEUE_URL"),
			DeadLetterQueueURL: os.Getenv("DEAD_LETTER_QUEUE_URL"),
			DynamoDBTable:      os.Getenv("DYNAMODB_TABLE"),
		},
		Worker: WorkerConfig{
			MaxConcurrentJobs:    getEnvInt("MAX_CONCURRENT_JOBS", DefaultMaxConcurrentJobs),
			MaxRetries:           getEnvInt("MAX_RETRIES", DefaultMaxRetries),
			RenditionConcurrency: getEnvInt("RENDITION_CONCURRENCY", DefaultRenditionConcurrency),
			UploadConcurrency:    getEnvInt("UPLOAD_CONCURRENCY", DefaultUploadConcurrency),
			TranscodeTimeout:     getEnvDuration("TRANSCODE_TIMEOUT", DefaultTranscodeTimeout),
			UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", DefaultUploadTimeout),
			MetricsPort:          getEnvInt("METRICS_PORT", DefaultMetricsPort),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", DefaultOTLPEndpoint),
		},
	}

	return cfg, nil
}

// LoadWorker loads and validates configuration for the worker process.
func LoadWorker() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateWorker(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateWorker validates configuration required for the worker process.
func (c *Config) ValidateWorker() error {
	var errs []string

	if c.AWS.SourceBucket == "" {
		errs = append(errs, "SOURCE_BUCKET is required")
	}
	if c.AWS.TargetBucket == "" {
		errs = append(errs, "TARGET_BUCKET is required")
	}
	if c.AWS.DemoBucket == "" {
		errs = append(errs, "DEMO_BUCKET is required")
	}
	if c.AWS.CDNDomain == "" {
		errs = append(errs, "CDN_DOMAIN is required")
	}
	if c.AWS.DemoCDNDomain == "" {
		errs = append(errs, "DEMO_CDN_DOMAIN is required")
	}
	if c.AWS.SQSQueueURL == "" {
		errs = append(errs, "SQS_QUEUE_URL is required")
	}
	if c.AWS.DynamoDBTable == "" {
		errs = append(errs, "DYNAMODB_TABLE is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TargetBucketFor returns the destination bucket for the demo flag.
func (c *AWSConfig) TargetBucketFor(demo bool) string {
	if demo {
		return c.DemoBucket
	}
	return c.TargetBucket
}

// CDNDomainFor returns the CDN domain base for the demo flag.
func (c *AWSConfig) CDNDomainFor(demo bool) string {
	if demo {
		return c.DemoCDNDomain
	}
	return c.CDNDomain
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
