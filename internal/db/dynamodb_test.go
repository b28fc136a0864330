package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/sentilens/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchWriter struct {
	inputs      []*dynamodb.BatchWriteItemInput
	unprocessed int
	err         error
}

func (f *fakeBatchWriter) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed > 0 {
		f.unprocessed--
		out.UnprocessedItems = params.RequestItems
	}
	return out, nil
}

func entries(n int) []PredictionLogEntry {
	now := time.Unix(1700000000, 0)
	out := make([]PredictionLogEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewPredictionLogEntry("req-1", i, "svm",
			models.Prediction{Text: "t", Label: "positive", Score: 0.5, Confidence: 75}, false, now))
	}
	return out
}

func TestNewPredictionLogEntry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e := NewPredictionLogEntry("req-9", 2, "naive_bayes",
		models.Prediction{Text: "bad", Label: "negative", Score: -0.6, Confidence: 80}, true, now)

	assert.Equal(t, "req-9", e.RequestID)
	assert.Equal(t, 2, e.Index)
	assert.Equal(t, "negative", e.Prediction)
	assert.True(t, e.Cached)
	assert.Equal(t, now.Add(ENTRY_TTL).Unix(), e.ExpiresAt)
}

func TestPredictionLog_Record_Batches(t *testing.T) {
	writer := &fakeBatchWriter{}
	log := NewPredictionLog(writer, "PredictionLog")

	require.NoError(t, log.Record(context.Background(), entries(30)))

	require.Len(t, writer.inputs, 2)
	assert.Len(t, writer.inputs[0].RequestItems["PredictionLog"], 25)
	assert.Len(t, writer.inputs[1].RequestItems["PredictionLog"], 5)

	item := writer.inputs[0].RequestItems["PredictionLog"][0].PutRequest.Item
	assert.Equal(t, &types.AttributeValueMemberS{Value: "req-1"}, item["request_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "positive"}, item["prediction"])
	_, hasCached := item["cached"]
	assert.False(t, hasCached)
}

func TestPredictionLog_Record_RetriesUnprocessed(t *testing.T) {
	writer := &fakeBatchWriter{unprocessed: 1}
	log := NewPredictionLog(writer, "PredictionLog")
	log.backoff = time.Millisecond

	require.NoError(t, log.Record(context.Background(), entries(3)))
	assert.Len(t, writer.inputs, 2)
}

func TestPredictionLog_Record_GivesUp(t *testing.T) {
	writer := &fakeBatchWriter{unprocessed: 10}
	log := NewPredictionLog(writer, "PredictionLog")
	log.backoff = time.Millisecond

	err := log.Record(context.Background(), entries(1))

	require.Error(t, err)
	assert.Len(t, writer.inputs, 4)
}

func TestPredictionLog_Record_Error(t *testing.T) {
	writer := &fakeBatchWriter{err: errors.New("throttled")}
	log := NewPredictionLog(writer, "PredictionLog")

	err := log.Record(context.Background(), entries(1))
	assert.ErrorContains(t, err, "throttled")
}

func TestPredictionLog_Record_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &fakeBatchWriter{}
	err := NewPredictionLog(writer, "PredictionLog").Record(ctx, entries(1))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, writer.inputs)
}

func TestPredictionLog_Record_BackoffStopsOnDeadline(t *testing.T) {
	writer := &fakeBatchWriter{unprocessed: 10}
	log := NewPredictionLog(writer, "PredictionLog")
	log.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := log.Record(ctx, entries(1))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Len(t, writer.inputs, 1)
}
