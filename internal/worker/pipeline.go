package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vodworks/encode-worker/internal/catalog"
	"github.com/vodworks/encode-worker/internal/metrics"
	"github.com/vodworks/encode-worker/internal/transcoder"
	"github.com/vodworks/encode-worker/pkg/models"
)

// processJob runs the full encode pipeline for one job: workspace, fetch,
// probe, ladder, transcode, upload, catalog commit. Any stage error aborts
// the rest; the workspace is released on every exit path.
func (w *Worker) processJob(ctx context.Context, job *models.EncodeJob) error {
	ctx, span := tracer.Start(ctx, "process-job")
	defer span.End()

	span.SetAttributes(
		attribute.String("video.id", job.VideoID),
		attribute.String("video.raw_key", job.RawKey),
		attribute.Bool("video.demo", job.Demo),
	)

	w.log.InfoContext(ctx, "Processing encode job",
		"videoId", job.VideoID,
		"rawKey", job.RawKey,
		"demo", job.Demo,
	)

	start := time.Now()

	ws, err := w.workspaces.Acquire()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}
	defer w.workspaces.Release(ws)

	// Fetch source from S3
	fetchStart := time.Now()
	inputPath, err := w.fetcher.Fetch(ctx, job, ws)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}
	metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())

	if ctx.Err() != nil {
		return fmt.Errorf("%w: before probe", models.ErrContextCanceled)
	}

	// Probe dimensions and derive the ladder
	dims, err := w.engine.Probe(ctx, inputPath)
	if err != nil {
		return err
	}

	ladder := transcoder.SelectLadder(dims.Height)
	labels := transcoder.Labels(ladder)

	w.log.InfoContext(ctx, "Selected rendition ladder",
		"videoId", job.VideoID,
		"sourceHeight", dims.Height,
		"labels", labels,
	)

	// Transcode renditions with bounded parallelism. A single failure
	// aborts the whole job; no partial ladder is published.
	if err := w.transcodeLadder(ctx, inputPath, ws, ladder); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: before upload", models.ErrContextCanceled)
	}

	// Upload the artifact tree
	uploadStart := time.Now()
	uploadCtx, cancelUpload := context.WithTimeout(ctx, w.cfg.Worker.UploadTimeout)
	err = w.uploader.Upload(uploadCtx, job.VideoID, ws, labels, w.cfg.AWS.TargetBucketFor(job.Demo))
	cancelUpload()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUploadFailed, err)
	}
	metrics.UploadDuration.Observe(time.Since(uploadStart).Seconds())

	// Commit to the catalog. Nothing before this is externally visible
	// as done.
	urls := catalog.BuildRenditionURLs(w.cfg.AWS.CDNDomainFor(job.Demo), job.VideoID, labels)
	if err := w.catalog.CompleteEncoding(ctx, job.VideoID, urls); err != nil {
		return err
	}

	duration := time.Since(start).Seconds()
	metrics.ProcessingDuration.Observe(duration)

	w.log.InfoContext(ctx, "Encode job completed",
		"videoId", job.VideoID,
		"durationSeconds", duration,
		"renditions", labels,
	)

	return nil
}

// transcodeLadder runs the engine for every rendition in the ladder.
// Renditions are independent, so they run concurrently behind a semaphore;
// the first failure wins and voids the job.
func (w *Worker) transcodeLadder(ctx context.Context, inputPath string, ws *Workspace, ladder []models.Rendition) error {
	var firstErr atomic.Pointer[error]

	sem := make(chan struct{}, w.cfg.Worker.RenditionConcurrency)
	var wg sync.WaitGroup

	for _, r := range ladder {
		if err := os.MkdirAll(ws.RenditionDir(r.Label), 0755); err != nil {
			return fmt.Errorf("%w: create rendition dir %s: %v", models.ErrTranscodeFailed, r.Label, err)
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return fmt.Errorf("%w: during transcode", models.ErrContextCanceled)
		}

		wg.Add(1)
		go func(r models.Rendition) {
			defer wg.Done()
			defer func() { <-sem }()

			if firstErr.Load() != nil {
				return
			}

			rCtx, cancel := context.WithTimeout(ctx, w.cfg.Worker.TranscodeTimeout)
			defer cancel()

			if err := w.engine.Transcode(rCtx, inputPath, ws.RenditionDir(r.Label), r); err != nil {
				firstErr.CompareAndSwap(nil, &err)
			}
		}(r)
	}

	wg.Wait()

	if errPtr := firstErr.Load(); errPtr != nil {
		return *errPtr
	}

	return nil
}
