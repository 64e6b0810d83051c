package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vodworks/encode-worker/pkg/models"
)

// Fetcher streams the raw source video from S3 into the workspace.
type Fetcher struct {
	s3Client     S3API
	sourceBucket string
	log          *slog.Logger
}

// NewFetcher creates a Fetcher reading from the source bucket.
func NewFetcher(s3Client S3API, sourceBucket string, log *slog.Logger) *Fetcher {
	return &Fetcher{
		s3Client:     s3Client,
		sourceBucket: sourceBucket,
		log:          log,
	}
}

// Fetch downloads the job's raw object to workspace/input.<ext> and returns
// the local path. A partial file on failure is fine since the whole
// workspace is discarded with the job.
func (f *Fetcher) Fetch(ctx context.Context, job *models.EncodeJob, ws *Workspace) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch-source")
	defer span.End()

	result, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.sourceBucket),
		Key:    aws.String(job.RawKey),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s: %w", job.RawKey, err)
	}
	defer result.Body.Close()

	inputPath := ws.InputPath(job.RawKey)
	file, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create input file: %w", err)
	}

	written, err := io.Copy(file, result.Body)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write input file: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close input file: %w", err)
	}

	span.SetAttributes(attribute.Int64("video.size_bytes", written))
	f.log.InfoContext(ctx, "Fetched source video",
		"videoId", job.VideoID,
		"rawKey", job.RawKey,
		"sizeBytes", written,
	)

	return inputPath, nil
}
