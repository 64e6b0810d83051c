package models

import "errors"

// Sentinel errors for encode job processing.
var (
	// Validation errors
	ErrMissingVideoID = errors.New("videoId is required")
	ErrMissingRawKey  = errors.New("rawKey is required")

	// Pipeline stage errors, all retryable
	ErrJobParseFailed     = errors.New("failed to parse encode job")
	ErrFetchFailed        = errors.New("failed to fetch source video")
	ErrProbeFailed        = errors.New("failed to probe source video")
	ErrTranscodeFailed    = errors.New("failed to transcode rendition")
	ErrUploadFailed       = errors.New("failed to upload artifacts")
	ErrCatalogWriteFailed = errors.New("failed to update video catalog")
	ErrContextCanceled    = errors.New("context canceled")
)
