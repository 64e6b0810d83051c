package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vodworks/encode-worker/pkg/models"
)

type fakeDynamoDB struct {
	updates []*dynamodb.UpdateItemInput
	err     error
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestCompleteEncoding(t *testing.T) {
	fake := &fakeDynamoDB{}
	repo := NewRepositoryFromClient(fake, "videos")

	urls := map[string]string{
		"high": "https://cdn.test/vid-1/mid/index.m3u8",
		"mid":  "https://cdn.test/vid-1/mid/index.m3u8",
		"low":  "https://cdn.test/vid-1/low/index.m3u8",
	}

	if err := repo.CompleteEncoding(context.Background(), "vid-1", urls); err != nil {
		t.Fatalf("CompleteEncoding() error = %v", err)
	}

	if len(fake.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(fake.updates))
	}

	update := fake.updates[0]
	pk := update.Key["pk"].(*types.AttributeValueMemberS).Value
	if pk != "VIDEO#vid-1" {
		t.Errorf("pk = %q, want VIDEO#vid-1", pk)
	}

	encoded := update.ExpressionAttributeValues[":encoded"].(*types.AttributeValueMemberBOOL).Value
	if !encoded {
		t.Error(":encoded = false, want true")
	}

	urlsAV, ok := update.ExpressionAttributeValues[":urls"].(*types.AttributeValueMemberM)
	if !ok {
		t.Fatalf(":urls is %T, want map attribute", update.ExpressionAttributeValues[":urls"])
	}
	if len(urlsAV.Value) != 3 {
		t.Errorf("urls map has %d keys, want 3", len(urlsAV.Value))
	}
	low := urlsAV.Value["low"].(*types.AttributeValueMemberS).Value
	if low != "https://cdn.test/vid-1/low/index.m3u8" {
		t.Errorf("low url = %q", low)
	}
}

func TestCompleteEncoding_Idempotent(t *testing.T) {
	fake := &fakeDynamoDB{}
	repo := NewRepositoryFromClient(fake, "videos")

	urls := map[string]string{"low": "https://cdn.test/vid-2/low/index.m3u8"}

	for i := 0; i < 2; i++ {
		if err := repo.CompleteEncoding(context.Background(), "vid-2", urls); err != nil {
			t.Fatalf("CompleteEncoding() attempt %d error = %v", i, err)
		}
	}

	if len(fake.updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(fake.updates))
	}
	// Both writes must target the same key with the same url map.
	for i, update := range fake.updates {
		pk := update.Key["pk"].(*types.AttributeValueMemberS).Value
		if pk != "VIDEO#vid-2" {
			t.Errorf("update %d pk = %q, want VIDEO#vid-2", i, pk)
		}
	}
}

func TestCompleteEncoding_WriteError(t *testing.T) {
	fake := &fakeDynamoDB{err: errors.New("throttled")}
	repo := NewRepositoryFromClient(fake, "videos")

	err := repo.CompleteEncoding(context.Background(), "vid-3", map[string]string{})
	if !errors.Is(err, models.ErrCatalogWriteFailed) {
		t.Errorf("CompleteEncoding() error = %v, want ErrCatalogWriteFailed", err)
	}
}

func TestMarkEncodingFailed(t *testing.T) {
	fake := &fakeDynamoDB{}
	repo := NewRepositoryFromClient(fake, "videos")

	if err := repo.MarkEncodingFailed(context.Background(), "vid-4", "transcode failed"); err != nil {
		t.Fatalf("MarkEncodingFailed() error = %v", err)
	}

	update := fake.updates[0]
	if !strings.Contains(*update.UpdateExpression, "encoding_failed") {
		t.Errorf("UpdateExpression = %q, want encoding_failed set", *update.UpdateExpression)
	}
	failed := update.ExpressionAttributeValues[":failed"].(*types.AttributeValueMemberBOOL).Value
	if !failed {
		t.Error(":failed = false, want true")
	}
	msg := update.ExpressionAttributeValues[":error"].(*types.AttributeValueMemberS).Value
	if msg != "transcode failed" {
		t.Errorf(":error = %q, want transcode failed", msg)
	}
}
