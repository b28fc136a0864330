package predictd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/sentilens/internal/db"
	"github.com/spacesedan/sentilens/internal/models"
	"github.com/spacesedan/sentilens/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]models.Prediction
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]models.Prediction{}}
}

func (m *memoryCache) GetPrediction(_ context.Context, model, text string) (models.Prediction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[model+"|"+text]
	if ok {
		m.hits++
	}
	return p, ok
}

func (m *memoryCache) StorePrediction(_ context.Context, model, text string, pred models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[model+"|"+text] = pred
	return nil
}

type recorderFunc func(ctx context.Context, entries []db.PredictionLogEntry) error

func (f recorderFunc) Record(ctx context.Context, entries []db.PredictionLogEntry) error {
	return f(ctx, entries)
}

func fixedScorer(text string) sentiment.Score {
	if text == "bad" {
		return sentiment.Score{Compound: -0.5, Label: "negative", Confidence: 75, ConfidenceText: "75%"}
	}
	return sentiment.Score{Compound: 0.8, Label: "positive", Confidence: 90, ConfidenceText: "90%"}
}

func setupTestRouter(opts ...Option) *gin.Engine {
	router, _ := setupTestServer(opts...)
	return router
}

func setupTestServer(opts ...Option) (*gin.Engine, *Server) {
	gin.SetMode(gin.TestMode)
	opts = append([]Option{WithScorer(fixedScorer)}, opts...)
	srv := NewServer(opts...)
	return NewRouter(srv, nil), srv
}

func doJSON(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPredict_SingleText(t *testing.T) {
	router := setupTestRouter()

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"Naive_Bayes","text":"great"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "great", resp["text"])
	assert.Equal(t, "positive", resp["prediction"])
	assert.Equal(t, "naive_bayes", resp["model"])
	assert.Equal(t, 90.0, resp["confidence"])
	assert.Equal(t, "90%", resp["confidence_text"])
}

func TestPredict_BatchText(t *testing.T) {
	router := setupTestRouter()

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":["great","bad"]}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Text       []string  `json:"text"`
		Prediction []string  `json:"prediction"`
		Confidence []float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"great", "bad"}, resp.Text)
	assert.Equal(t, []string{"positive", "negative"}, resp.Prediction)
	assert.Equal(t, []float64{90, 75}, resp.Confidence)
}

func TestPredict_InvalidModel(t *testing.T) {
	router := setupTestRouter()

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"bert","text":"great"}`, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid model name")
	assert.Contains(t, w.Body.String(), "logistic_regression")
}

func TestPredict_MalformedBody(t *testing.T) {
	router := setupTestRouter()

	for _, body := range []string{`{`, `{"model":"svm"}`, `{"model":"svm","text":42}`, `{"text":"hi"}`} {
		w := doJSON(router, http.MethodPost, "/predict", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}
}

func TestPredict_UsesCache(t *testing.T) {
	cache := newMemoryCache()
	router := setupTestRouter(WithCache(cache))

	for i := 0; i < 2; i++ {
		w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":"great"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.entries, 1)
}

func TestPredict_RecordsEntries(t *testing.T) {
	var got []db.PredictionLogEntry
	router, srv := setupTestServer(WithRecorder(recorderFunc(func(_ context.Context, entries []db.PredictionLogEntry) error {
		got = append(got, entries...)
		return nil
	})))

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":["great","bad"]}`,
		map[string]string{"X-Request-ID": "req-42"})
	srv.Wait()

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	require.Len(t, got, 2)
	assert.Equal(t, "req-42", got[0].RequestID)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, "negative", got[1].Prediction)
}

func TestPredict_RecorderFailureDoesNotFailRequest(t *testing.T) {
	router, srv := setupTestServer(WithRecorder(recorderFunc(func(context.Context, []db.PredictionLogEntry) error {
		return errors.New("table missing")
	})))

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":"great"}`, nil)
	srv.Wait()
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredict_SlowRecorderDoesNotDelayResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	router, srv := setupTestServer(WithRecorder(recorderFunc(func(ctx context.Context, _ []db.PredictionLogEntry) error {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})))

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":"great"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	<-started
	close(release)
	srv.Wait()
}

func TestPredict_RecordingIsBoundedByTimeout(t *testing.T) {
	var recordErr error
	router, srv := setupTestServer(
		WithRecordTimeout(10*time.Millisecond),
		WithRecorder(recorderFunc(func(ctx context.Context, _ []db.PredictionLogEntry) error {
			<-ctx.Done()
			recordErr = ctx.Err()
			return recordErr
		})),
	)

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":"great"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	srv.Wait()
	assert.ErrorIs(t, recordErr, context.DeadlineExceeded)
}

func TestHealth(t *testing.T) {
	router := setupTestRouter()

	w := doJSON(router, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCORS_AllowsAnyOriginByDefault(t *testing.T) {
	router := setupTestRouter()

	w := doJSON(router, http.MethodPost, "/predict", `{"model":"svm","text":"great"}`,
		map[string]string{"Origin": "http://localhost:3001"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
