package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vodworks/encode-worker/internal/config"
	"github.com/vodworks/encode-worker/internal/metrics"
	"github.com/vodworks/encode-worker/pkg/models"
)

// SQS configuration constants
const (
	SQSMaxMessages       = 1
	SQSWaitTimeSeconds   = 20
	SQSVisibilityTimeout = 3600 // must exceed the per-job timeout budget
	RetryBackoffPeriod   = 5 * time.Second

	// RetryCountAttribute carries the delivery-attempt counter as a
	// message attribute, separate from the job payload.
	RetryCountAttribute = "retryCount"
)

var tracer = otel.Tracer("encode-worker")

// Worker consumes encode jobs from SQS and drives the pipeline per message.
type Worker struct {
	sqsClient  SQSAPI
	engine     Engine
	catalog    Catalog
	fetcher    *Fetcher
	uploader   *Uploader
	workspaces *WorkspaceManager
	cfg        *config.Config
	log        *slog.Logger
}

// Config holds worker dependencies.
type Config struct {
	S3Client  S3API
	SQSClient SQSAPI
	Engine    Engine
	Catalog   Catalog
	WorkDir   string
	AppConfig *config.Config
	Logger    *slog.Logger
}

// New creates a Worker with the given dependencies.
func New(cfg *Config) *Worker {
	return &Worker{
		sqsClient:  cfg.SQSClient,
		engine:     cfg.Engine,
		catalog:    cfg.Catalog,
		fetcher:    NewFetcher(cfg.S3Client, cfg.AppConfig.AWS.SourceBucket, cfg.Logger),
		uploader:   NewUploader(cfg.S3Client, cfg.AppConfig.Worker.UploadConcurrency, cfg.Logger),
		workspaces: NewWorkspaceManager(cfg.WorkDir, cfg.Logger),
		cfg:        cfg.AppConfig,
		log:        cfg.Logger,
	}
}

// Run starts the consumer loop and blocks until the context is cancelled.
// Each delivered message runs in its own goroutine behind a semaphore;
// concurrent jobs never share a workspace.
func (w *Worker) Run(ctx context.Context) {
	w.log.InfoContext(ctx, "Starting queue polling",
		"queueURL", w.cfg.AWS.SQSQueueURL,
		"maxConcurrent", w.cfg.Worker.MaxConcurrentJobs,
	)

	sem := make(chan struct{}, w.cfg.Worker.MaxConcurrentJobs)
	var wg sync.WaitGroup

messageLoop:
	for {
		select {
		case <-ctx.Done():
			w.log.InfoContext(ctx, "Waiting for in-progress jobs to complete...")
			wg.Wait()
			w.log.InfoContext(ctx, "All jobs completed, shutting down")
			return
		default:
		}

		result, err := w.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(w.cfg.AWS.SQSQueueURL),
			MaxNumberOfMessages:   SQSMaxMessages,
			WaitTimeSeconds:       SQSWaitTimeSeconds,
			VisibilityTimeout:     SQSVisibilityTimeout,
			MessageAttributeNames: []string{RetryCountAttribute},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue // Shutting down
			}
			w.log.ErrorContext(ctx, "Failed to receive messages", "error", err)
			time.Sleep(RetryBackoffPeriod)
			continue
		}

		for _, msg := range result.Messages {
			select {
			case sem <- struct{}{}:
				wg.Add(1)
				go func(msg types.Message) {
					defer wg.Done()
					defer func() { <-sem }()

					metrics.ActiveJobs.Inc()
					defer metrics.ActiveJobs.Dec()

					w.handleMessage(ctx, msg)
				}(msg)
			case <-ctx.Done():
				w.log.InfoContext(ctx, "Context cancelled, stopping message processing")
				break messageLoop
			}
		}
	}
}

// handleMessage applies the retry policy for one delivery: drop past the
// retry budget, otherwise run the pipeline and convert any failure into an
// explicit republish with an incremented retryCount. Exactly one ack per
// received message, and the ack only happens after a replacement message
// (if any) was durably accepted.
func (w *Worker) handleMessage(ctx context.Context, msg types.Message) {
	ctx, span := tracer.Start(ctx, "handle-message")
	defer span.End()

	retryCount := parseRetryCount(msg)
	span.SetAttributes(attribute.Int("job.retry_count", retryCount))

	job, parseErr := parseJob(msg)

	if retryCount >= w.cfg.Worker.MaxRetries {
		w.dropJob(ctx, msg, job, retryCount)
		w.ack(ctx, msg)
		return
	}

	var processErr error
	if parseErr != nil {
		processErr = parseErr
	} else {
		processErr = w.processJob(ctx, job)
	}

	if processErr != nil {
		w.log.ErrorContext(ctx, "Encode job attempt failed",
			"error", processErr,
			"retryCount", retryCount,
			"messageId", safeStringDeref(msg.MessageId),
		)
		metrics.RecordFailure()

		// Republish before acking so a crash in between loses no job,
		// only duplicates one.
		if err := w.republish(ctx, msg, retryCount+1); err != nil {
			w.log.ErrorContext(ctx, "Failed to republish retry, leaving message for redelivery", "error", err)
			return
		}
		metrics.RecordRetry()
		w.ack(ctx, msg)
		return
	}

	metrics.RecordSuccess()
	w.ack(ctx, msg)
}

// dropJob handles a message that exhausted its retry budget: the pipeline
// never runs, the terminal failure is recorded in the catalog, and the
// message is forwarded to the dead-letter queue when one is configured.
func (w *Worker) dropJob(ctx context.Context, msg types.Message, job *models.EncodeJob, retryCount int) {
	w.log.ErrorContext(ctx, "Dropping job after max retries",
		"retryCount", retryCount,
		"maxRetries", w.cfg.Worker.MaxRetries,
		"messageId", safeStringDeref(msg.MessageId),
	)
	metrics.RecordDrop()

	if job != nil {
		errMsg := fmt.Sprintf("encoding failed after %d attempts", retryCount)
		if err := w.catalog.MarkEncodingFailed(ctx, job.VideoID, errMsg); err != nil {
			w.log.ErrorContext(ctx, "Failed to record terminal failure",
				"videoId", job.VideoID,
				"error", err,
			)
		}
	}

	if w.cfg.AWS.DeadLetterQueueURL == "" {
		return
	}

	_, err := w.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(w.cfg.AWS.DeadLetterQueueURL),
		MessageBody: msg.Body,
		MessageAttributes: map[string]types.MessageAttributeValue{
			RetryCountAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.Itoa(retryCount)),
			},
		},
	})
	if err != nil {
		w.log.ErrorContext(ctx, "Failed to forward message to dead-letter queue", "error", err)
	}
}

// republish sends an equivalent message back to the job queue with the
// incremented retryCount attribute.
func (w *Worker) republish(ctx context.Context, msg types.Message, retryCount int) error {
	_, err := w.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(w.cfg.AWS.SQSQueueURL),
		MessageBody: msg.Body,
		MessageAttributes: map[string]types.MessageAttributeValue{
			RetryCountAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.Itoa(retryCount)),
			},
		},
	})
	return err
}

// ack removes the message from the queue.
func (w *Worker) ack(ctx context.Context, msg types.Message) {
	_, err := w.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.cfg.AWS.SQSQueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		w.log.ErrorContext(ctx, "Failed to delete message", "error", err)
	}
}

// parseJob decodes and validates the job payload.
func parseJob(msg types.Message) (*models.EncodeJob, error) {
	if msg.Body == nil {
		return nil, fmt.Errorf("%w: empty message body", models.ErrJobParseFailed)
	}

	var job models.EncodeJob
	if err := json.Unmarshal([]byte(*msg.Body), &job); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrJobParseFailed, err)
	}

	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrJobParseFailed, err)
	}

	return &job, nil
}

// parseRetryCount reads the retryCount message attribute; absent means 0.
func parseRetryCount(msg types.Message) int {
	attr, ok := msg.MessageAttributes[RetryCountAttribute]
	if !ok || attr.StringValue == nil {
		return 0
	}
	count, err := strconv.Atoi(*attr.StringValue)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

func safeStringDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
