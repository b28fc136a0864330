package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/sentilens/internal/clients"
	"github.com/spacesedan/sentilens/internal/models"
)

// Classifier performs the remote classification call.
type Classifier interface {
	Predict(ctx context.Context, input models.PredictRequest) (models.PredictResponse, error)
}

// Observer is told about every resolution that was applied to the state.
// Stale responses and validation failures are not reported.
type Observer interface {
	OnOutcome(outcome models.AnalysisOutcome)
}

type ObserverFunc func(outcome models.AnalysisOutcome)

func (f ObserverFunc) OnOutcome(outcome models.AnalysisOutcome) {
	f(outcome)
}

type Option func(*AnalysisController)

func WithObserver(o Observer) Option {
	return func(c *AnalysisController) {
		c.observers = append(c.observers, o)
	}
}

func WithRequestIDFunc(fn func() string) Option {
	return func(c *AnalysisController) {
		c.newRequestID = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *AnalysisController) {
		c.now = now
	}
}

// AnalysisController owns one session's InteractionState. At most one
// classification request is in flight per controller.
type AnalysisController struct {
	classifier   Classifier
	observers    []Observer
	newRequestID func() string
	now          func() time.Time

	mu    sync.Mutex
	state models.InteractionState
}

func New(classifier Classifier, opts ...Option) *AnalysisController {
	c := &AnalysisController{
		classifier:   classifier,
		newRequestID: uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates the input, then blocks on a single classification call and
// applies its outcome. A second Submit while one is pending returns
// ErrRequestInFlight without touching the state. If Reset runs while the call
// is pending, the response is dropped and ErrStaleResponse is returned.
func (c *AnalysisController) Submit(ctx context.Context, inputText, modelID string) (models.AnalysisResult, error) {
	c.mu.Lock()
	if c.state.IsPending {
		c.mu.Unlock()
		slog.Warn("[AnalysisController] Submit rejected, request already in flight",
			slog.String("model", modelID))
		return models.AnalysisResult{}, ErrRequestInFlight
	}

	c.state.InputText = inputText
	c.state.SelectedModelID = modelID

	req, err := validate(inputText, modelID)
	if err != nil {
		c.state.LastResult = nil
		c.state.LastError = ValidationMessage
		c.mu.Unlock()
		slog.Debug("[AnalysisController] Validation failed",
			slog.String("error", err.Error()))
		return models.AnalysisResult{}, err
	}

	c.state.IsPending = true
	c.state.LastResult = nil
	c.state.LastError = ""
	generation := c.state.Generation
	c.mu.Unlock()

	requestID := c.newRequestID()
	start := c.now()
	slog.Info("[AnalysisController] Dispatching classification request",
		slog.String("request_id", requestID),
		slog.String("model", req.Model),
		slog.Int("text_length", len(req.Text)))

	resp, callErr := c.classifier.Predict(clients.WithRequestID(ctx, requestID), req)

	c.mu.Lock()
	c.state.IsPending = false
	if generation != c.state.Generation {
		c.mu.Unlock()
		slog.Warn("[AnalysisController] Discarding response for a reset session",
			slog.String("request_id", requestID),
			slog.Uint64("generation", generation))
		return models.AnalysisResult{}, ErrStaleResponse
	}

	outcome := models.AnalysisOutcome{
		RequestID:  requestID,
		Text:       req.Text,
		Model:      req.Model,
		Generation: generation,
		Elapsed:    c.now().Sub(start),
		ResolvedAt: c.now(),
	}

	var result models.AnalysisResult
	var failure error
	if callErr != nil {
		c.state.LastResult = nil
		c.state.LastError = RequestFailureMessage
		outcome.Error = RequestFailureMessage
		failure = &RequestFailure{RequestID: requestID, Cause: callErr}
	} else {
		result = models.AnalysisResult{
			Text:       req.Text,
			Prediction: resp.PredictionOrUnknown(),
			Model:      req.Model,
		}
		stored := result
		c.state.LastResult = &stored
		c.state.LastError = ""
		outcome.Result = &result
	}
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	if failure != nil {
		slog.Error("[AnalysisController] Classification request failed",
			slog.String("request_id", requestID),
			slog.Duration("elapsed", outcome.Elapsed),
			slog.String("error", callErr.Error()))
	} else {
		slog.Info("[AnalysisController] Classification request resolved",
			slog.String("request_id", requestID),
			slog.String("prediction", result.Prediction),
			slog.Duration("elapsed", outcome.Elapsed))
	}

	for _, o := range observers {
		o.OnOutcome(outcome)
	}

	if failure != nil {
		return models.AnalysisResult{}, failure
	}
	return result, nil
}

// SubmitCurrent submits the text and model already held in the state.
func (c *AnalysisController) SubmitCurrent(ctx context.Context) (models.AnalysisResult, error) {
	c.mu.Lock()
	text, model := c.state.InputText, c.state.SelectedModelID
	c.mu.Unlock()
	return c.Submit(ctx, text, model)
}

// Reset clears text, model, result and error. An in-flight request is not
// canceled; its response will be discarded when it lands.
func (c *AnalysisController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.InputText = ""
	c.state.SelectedModelID = ""
	c.state.LastResult = nil
	c.state.LastError = ""
	c.state.Generation++
}

// SelectExample pre-fills the input text and clears the last outcome.
func (c *AnalysisController) SelectExample(exampleText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.InputText = exampleText
	c.state.LastResult = nil
	c.state.LastError = ""
}

// SetText edits the input; allowed while a request is pending.
func (c *AnalysisController) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.InputText = text
}

// SelectModel changes the selected model; allowed while a request is pending.
// Membership is checked on Submit.
func (c *AnalysisController) SelectModel(modelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectedModelID = modelID
}

// State returns a copy of the current state.
func (c *AnalysisController) State() models.InteractionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.LastResult != nil {
		r := *s.LastResult
		s.LastResult = &r
	}
	return s
}

func validate(inputText, modelID string) (models.PredictRequest, error) {
	text := strings.TrimSpace(inputText)
	if text == "" {
		return models.PredictRequest{}, fmt.Errorf("%w: text is empty", ErrValidation)
	}
	if modelID == "" {
		return models.PredictRequest{}, fmt.Errorf("%w: no model selected", ErrValidation)
	}
	if !models.IsValidModel(modelID) {
		return models.PredictRequest{}, fmt.Errorf("%w: unknown model %q", ErrValidation, modelID)
	}
	return models.PredictRequest{Text: text, Model: modelID}, nil
}
