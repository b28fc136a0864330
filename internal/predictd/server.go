// Package predictd is a local stand-in for the prediction service. It speaks
// the same /predict contract but scores every model with VADER, so labels are
// only indicative of what the trained models would return.
package predictd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/sentilens/internal/db"
	"github.com/spacesedan/sentilens/internal/models"
	"github.com/spacesedan/sentilens/internal/sentiment"
)

// RECORD_TIMEOUT bounds one background write to the prediction log.
const RECORD_TIMEOUT = 5 * time.Second

type PredictionCache interface {
	GetPrediction(ctx context.Context, model, text string) (models.Prediction, bool)
	StorePrediction(ctx context.Context, model, text string, pred models.Prediction) error
}

type PredictionRecorder interface {
	Record(ctx context.Context, entries []db.PredictionLogEntry) error
}

type Scorer func(text string) sentiment.Score

type Option func(*Server)

func WithCache(cache PredictionCache) Option {
	return func(s *Server) { s.cache = cache }
}

func WithRecorder(recorder PredictionRecorder) Option {
	return func(s *Server) { s.recorder = recorder }
}

func WithScorer(scorer Scorer) Option {
	return func(s *Server) { s.scorer = scorer }
}

func WithRecordTimeout(d time.Duration) Option {
	return func(s *Server) { s.recordTimeout = d }
}

type Server struct {
	cache         PredictionCache
	recorder      PredictionRecorder
	scorer        Scorer
	now           func() time.Time
	recordTimeout time.Duration

	recording sync.WaitGroup
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		scorer:        sentiment.Analyze,
		now:           time.Now,
		recordTimeout: RECORD_TIMEOUT,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Predict(c *gin.Context) {
	var req models.ServicePredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	model := models.NormalizeModel(req.Model)
	if !models.IsValidModel(model) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Detail: fmt.Sprintf("Invalid model name. Allowed values: %v", models.ModelIDs()),
		})
		return
	}
	if len(req.Text.Values) == 0 {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "text must not be empty"})
		return
	}

	ctx := c.Request.Context()
	requestID := c.GetString(requestIDKey)
	now := s.now()

	preds := make([]models.Prediction, 0, len(req.Text.Values))
	entries := make([]db.PredictionLogEntry, 0, len(req.Text.Values))
	for i, text := range req.Text.Values {
		pred, cached := s.score(ctx, model, text)
		preds = append(preds, pred)
		entries = append(entries, db.NewPredictionLogEntry(requestID, i, model, pred, cached, now))
	}

	c.JSON(http.StatusOK, models.NewServicePredictResponse(req.Text, model, preds))

	if s.recorder != nil {
		s.recordAsync(requestID, entries)
	}
}

// recordAsync writes the prediction log off the request path so a slow or
// throttled table never adds latency to /predict.
func (s *Server) recordAsync(requestID string, entries []db.PredictionLogEntry) {
	s.recording.Add(1)
	go func() {
		defer s.recording.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
		defer cancel()

		if err := s.recorder.Record(ctx, entries); err != nil {
			slog.Warn("[PredictServer] Failed to record predictions",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until background prediction log writes have finished.
func (s *Server) Wait() {
	s.recording.Wait()
}

func (s *Server) score(ctx context.Context, model, text string) (models.Prediction, bool) {
	if s.cache != nil {
		if pred, ok := s.cache.GetPrediction(ctx, model, text); ok {
			return pred, true
		}
	}

	score := s.scorer(text)
	pred := models.Prediction{
		Text:           text,
		Label:          score.Label,
		Score:          score.Compound,
		Confidence:     score.Confidence,
		ConfidenceText: score.ConfidenceText,
	}

	if s.cache != nil {
		if err := s.cache.StorePrediction(ctx, model, text, pred); err != nil {
			slog.Warn("[PredictServer] Failed to cache prediction",
				slog.String("model", model),
				slog.String("error", err.Error()))
		}
	}
	return pred, false
}
