package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/vodworks/encode-worker/internal/config"
	"github.com/vodworks/encode-worker/pkg/models"
)

// DynamoDBAPI defines the DynamoDB operations the repository needs.
type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Repository writes encode results to the video catalog in DynamoDB.
type Repository struct {
	client    DynamoDBAPI
	tableName string
}

// NewRepository creates a Repository using the provided configuration.
func NewRepository(ctx context.Context, cfg *config.Config) (*Repository, error) {
	if cfg.AWS.DynamoDBTable == "" {
		return nil, errors.New("DynamoDB table name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	return &Repository{
		client:    dynamodb.NewFromConfig(awsCfg),
		tableName: cfg.AWS.DynamoDBTable,
	}, nil
}

// NewRepositoryFromClient creates a Repository from an existing client.
func NewRepositoryFromClient(client DynamoDBAPI, tableName string) *Repository {
	return &Repository{
		client:    client,
		tableName: tableName,
	}
}

// CompleteEncoding marks a video as encoded and stores the alias-completed
// rendition URL map. This is the pipeline's single commit point; the update
// is idempotent for identical inputs.
func (r *Repository) CompleteEncoding(ctx context.Context, videoID string, renditionURLs map[string]string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	urlsAV, err := attributevalue.Marshal(renditionURLs)
	if err != nil {
		return fmt.Errorf("%w: marshal rendition urls: %v", models.ErrCatalogWriteFailed, err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("VIDEO#%s", videoID)},
			"sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression: aws.String(`
			SET encoded = :encoded,
			    hls_urls = :urls,
			    updated_at = :updated_at,
			    processed_at = :processed_at
			REMOVE encoding_failed, error_message
		`),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":encoded":      &types.AttributeValueMemberBOOL{Value: true},
			":urls":         urlsAV,
			":updated_at":   &types.AttributeValueMemberS{Value: now},
			":processed_at": &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCatalogWriteFailed, err)
	}

	return nil
}

// MarkEncodingFailed records a terminal encode failure after the retry
// budget is exhausted, so the job does not disappear silently.
func (r *Repository) MarkEncodingFailed(ctx context.Context, videoID, errorMessage string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("VIDEO#%s", videoID)},
			"sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression: aws.String("SET encoding_failed = :failed, error_message = :error, updated_at = :updated_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":     &types.AttributeValueMemberBOOL{Value: true},
			":error":      &types.AttributeValueMemberS{Value: errorMessage},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCatalogWriteFailed, err)
	}

	return nil
}
