package worker

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/vodworks/encode-worker/internal/transcoder"
	"github.com/vodworks/encode-worker/pkg/models"
)

// S3API defines the S3 operations the worker needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SQSAPI defines the SQS operations the worker needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Engine is the external transcoding engine the pipeline drives.
type Engine interface {
	Probe(ctx context.Context, inputPath string) (transcoder.Dimensions, error)
	Transcode(ctx context.Context, inputPath, outputDir string, r models.Rendition) error
}

// Catalog is the video catalog store the pipeline commits results to.
type Catalog interface {
	CompleteEncoding(ctx context.Context, videoID string, renditionURLs map[string]string) error
	MarkEncodingFailed(ctx context.Context, videoID, errorMessage string) error
}
