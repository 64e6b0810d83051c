package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker metrics
var (
	// JobsProcessed counts encode jobs by terminal status of the attempt.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "encode",
			Name:      "jobs_processed_total",
			Help:      "Total number of encode job attempts by outcome",
		},
		[]string{"status"},
	)

	// RetriesPublished counts retry messages republished to the job queue.
	RetriesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "encode",
			Name:      "retries_published_total",
			Help:      "Total number of retry messages republished",
		},
	)

	// JobsDropped counts jobs dropped after exhausting the retry budget.
	JobsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "encode",
			Name:      "jobs_dropped_total",
			Help:      "Total number of jobs dropped after max retries",
		},
	)

	// ActiveJobs tracks the number of currently processing jobs.
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "encode",
			Name:      "active_jobs",
			Help:      "Number of currently processing jobs",
		},
	)

	// ProcessingDuration tracks the time taken to run the full pipeline.
	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "encode",
			Name:      "job_duration_seconds",
			Help:      "Time taken to process an encode job end to end",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)

	// FetchDuration tracks the time taken to download the source from S3.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "encode",
			Name:      "source_fetch_duration_seconds",
			Help:      "Time taken to fetch the source video from S3",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
	)

	// TranscodeDuration tracks the time taken per rendition transcode.
	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "encode",
			Name:      "rendition_transcode_duration_seconds",
			Help:      "Time taken to transcode a single rendition",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"label"},
	)

	// UploadDuration tracks the time taken to upload the artifact tree to S3.
	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "encode",
			Name:      "artifact_upload_duration_seconds",
			Help:      "Time taken to upload segmented output to S3",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
	)
)

// RecordSuccess records a successful encode job attempt.
func RecordSuccess() {
	JobsProcessed.WithLabelValues("success").Inc()
}

// RecordFailure records a failed encode job attempt.
func RecordFailure() {
	JobsProcessed.WithLabelValues("failed").Inc()
}

// RecordRetry records a republished retry message.
func RecordRetry() {
	JobsProcessed.WithLabelValues("retried").Inc()
	RetriesPublished.Inc()
}

// RecordDrop records a job dropped after exhausting retries.
func RecordDrop() {
	JobsProcessed.WithLabelValues("dropped").Inc()
	JobsDropped.Inc()
}
