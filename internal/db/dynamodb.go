package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/sentilens/internal/models"
)

const (
	MAX_BATCH_SIZE = 25
	ENTRY_TTL      = 24 * time.Hour
)

// BatchWriter is the slice of the DynamoDB API the prediction log uses.
type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

type PredictionLogEntry struct {
	RequestID  string  `dynamodbav:"request_id"`
	Index      int     `dynamodbav:"item_index"`
	Model      string  `dynamodbav:"model"`
	Text       string  `dynamodbav:"text"`
	Prediction string  `dynamodbav:"prediction"`
	Compound   float64 `dynamodbav:"compound"`
	Confidence float64 `dynamodbav:"confidence"`
	Cached     bool    `dynamodbav:"cached,omitempty"`
	CreatedAt  int64   `dynamodbav:"created_at"`
	ExpiresAt  int64   `dynamodbav:"ttl"`
}

func NewPredictionLogEntry(requestID string, index int, model string, pred models.Prediction, cached bool, now time.Time) PredictionLogEntry {
	return PredictionLogEntry{
		RequestID:  requestID,
		Index:      index,
		Model:      model,
		Text:       pred.Text,
		Prediction: pred.Label,
		Compound:   pred.Score,
		Confidence: pred.Confidence,
		Cached:     cached,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(ENTRY_TTL).Unix(),
	}
}

// PredictionLog writes one item per prediction served by predictd.
type PredictionLog struct {
	client  BatchWriter
	table   string
	backoff time.Duration
}

func NewPredictionLog(client BatchWriter, table string) *PredictionLog {
	return &PredictionLog{client: client, table: table, backoff: 500 * time.Millisecond}
}

func (l *PredictionLog) Table() string {
	return l.table
}

func (l *PredictionLog) Record(ctx context.Context, entries []PredictionLogEntry) error {
	for i := 0; i < len(entries); i += MAX_BATCH_SIZE {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := i + MAX_BATCH_SIZE
		if end > len(entries) {
			end = len(entries)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, entry := range entries[i:end] {
			item, err := attributevalue.MarshalMap(entry)
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal log entry: %w", err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := l.writeBatch(ctx, writeRequests); err != nil {
			return err
		}
	}

	slog.Debug("[DynamoDB] Stored prediction log entries",
		slog.Int("count", len(entries)))
	return nil
}

func (l *PredictionLog) writeBatch(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := l.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			l.table: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write prediction log: %w", err)
	}

	retryCount := 0
	backoff := l.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < 3 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("[DynamoDB] Gave up on unprocessed prediction log items: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed prediction log items...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[l.table])))

		out, err = l.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error %w", err)
		}
		retryCount++
	}

	if len(out.UnprocessedItems) > 0 {
		return fmt.Errorf("[DynamoDB] %d prediction log items not written after retries",
			len(out.UnprocessedItems[l.table]))
	}
	return nil
}
