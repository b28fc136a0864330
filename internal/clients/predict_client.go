package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/sentilens/internal/models"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID that Predict sends as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// StatusError is returned when the service answers with a non-2xx status.
// The body is kept only as a short preview for logs.
type StatusError struct {
	StatusCode int
	Preview    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
}

type PredictClient struct {
	baseURL string
	Client  *http.Client
}

func NewPredictClient(baseURL string, timeout time.Duration) *PredictClient {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	slog.Debug("[PredictClient] Initializing Client",
		slog.String("base_url", baseURL),
		slog.Duration("timeout", timeout))

	return &PredictClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *PredictClient) BaseURL() string {
	return p.baseURL
}

// Predict makes exactly one POST /predict call. There is no retry.
func (p *PredictClient) Predict(ctx context.Context, input models.PredictRequest) (models.PredictResponse, error) {
	var result models.PredictResponse
	endpoint := p.baseURL + PREDICT_PATH
	start := time.Now()

	err := p.postJSON(ctx, endpoint, input, &result)
	if err != nil {
		slog.Error("[PredictClient] Predict request failed",
			slog.String("model", input.Model),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return models.PredictResponse{}, err
	}

	slog.Info("[PredictClient] Predict request successful",
		slog.String("model", input.Model),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Health reports nil when GET /health answers 2xx.
func (p *PredictClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+HEALTH_PATH, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (p *PredictClient) postJSON(ctx context.Context, endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("[PredictClient] Non-success status",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			getPreview(respBody))
		return &StatusError{StatusCode: resp.StatusCode, Preview: preview(respBody)}
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[PredictClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func preview(respBody []byte) string {
	raw := string(respBody)
	if len(raw) > PREVIEW_LENGTH {
		raw = raw[:PREVIEW_LENGTH]
	}
	return raw
}

func getPreview(respBody []byte) slog.Attr {
	return slog.String("raw_response", preview(respBody))
}
