package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vodworks/encode-worker/pkg/models"
)

// Uploader uploads the workspace's rendition output tree to S3.
type Uploader struct {
	s3Client      S3API
	maxConcurrent int
	log           *slog.Logger
}

// NewUploader creates an Uploader with bounded upload concurrency.
func NewUploader(s3Client S3API, maxConcurrent int, log *slog.Logger) *Uploader {
	return &Uploader{
		s3Client:      s3Client,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// Upload walks every rendition directory and uploads each regular file to
// bucket under <videoId>/<relativePath>. All files must succeed; the first
// failure aborts the job. Keys are derived purely from videoId and relative
// path, so a retried upload overwrites the same objects.
func (u *Uploader) Upload(ctx context.Context, videoID string, ws *Workspace, labels []string, bucket string) error {
	ctx, span := tracer.Start(ctx, "upload-artifacts")
	defer span.End()

	var filesUploaded atomic.Int64
	var totalBytes atomic.Int64
	var firstErr atomic.Pointer[error]

	sem := make(chan struct{}, u.maxConcurrent)
	var wg sync.WaitGroup

	for _, label := range labels {
		walkErr := filepath.Walk(ws.RenditionDir(label), func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}

			if firstErr.Load() != nil {
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return fmt.Errorf("%w: during upload walk", models.ErrContextCanceled)
			}

			wg.Add(1)

			go func(filePath string, fileInfo os.FileInfo) {
				defer wg.Done()
				defer func() { <-sem }()

				if firstErr.Load() != nil {
					return
				}

				relPath, err := filepath.Rel(ws.Root, filePath)
				if err != nil {
					wrappedErr := fmt.Errorf("failed to get relative path: %w", err)
					firstErr.CompareAndSwap(nil, &wrappedErr)
					return
				}
				key := fmt.Sprintf("%s/%s", videoID, relPath)

				file, err := os.Open(filePath)
				if err != nil {
					wrappedErr := fmt.Errorf("failed to open file %s: %w", filePath, err)
					firstErr.CompareAndSwap(nil, &wrappedErr)
					return
				}
				defer file.Close()

				contentType := u.getContentType(filePath)

				_, err = u.s3Client.PutObject(ctx, &s3.PutObjectInput{
					Bucket:      aws.String(bucket),
					Key:         aws.String(key),
					Body:        file,
					ContentType: aws.String(contentType),
				})
				if err != nil {
					wrappedErr := fmt.Errorf("failed to upload %s: %w", key, err)
					firstErr.CompareAndSwap(nil, &wrappedErr)
					return
				}

				filesUploaded.Add(1)
				totalBytes.Add(fileInfo.Size())

				u.log.DebugContext(ctx, "Uploaded file", "key", key)

			}(path, info)

			return nil
		})
		if walkErr != nil {
			wg.Wait()
			return walkErr
		}
	}

	wg.Wait()

	if errPtr := firstErr.Load(); errPtr != nil {
		return *errPtr
	}

	uploaded := filesUploaded.Load()
	bytes := totalBytes.Load()

	span.SetAttributes(
		attribute.Int64("files.uploaded", uploaded),
		attribute.Int64("bytes.total", bytes),
	)

	u.log.InfoContext(ctx, "Artifact upload complete",
		"videoId", videoID,
		"bucket", bucket,
		"filesUploaded", uploaded,
		"totalBytes", bytes,
	)

	return nil
}

// getContentType returns the content type for a playlist or segment file.
func (u *Uploader) getContentType(filePath string) string {
	switch {
	case strings.HasSuffix(filePath, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(filePath, ".ts"):
		return "video/MP2T"
	default:
		return "application/octet-stream"
	}
}
