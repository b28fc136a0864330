package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/sentilens/internal/models"
	"github.com/valkey-io/valkey-go"
)

const VALKEY_PREDICTION_PREFIX = "predictions"

type ValkeyOptions struct {
	Address  string
	Password string
	UseTLS   bool
	TTL      time.Duration
}

// ValkeyClient caches predictions served by predictd, keyed by model and text.
type ValkeyClient struct {
	Client valkey.Client
	ttl    time.Duration
}

func InitValkey(opts ValkeyOptions) (*ValkeyClient, error) {
	clientOpts := valkey.ClientOption{
		InitAddress: []string{
			opts.Address,
		},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if opts.UseTLS {
		clientOpts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", opts.Address))

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ValkeyClient{Client: client, ttl: ttl}, nil
}

func (vc *ValkeyClient) Close() {
	if vc != nil && vc.Client != nil {
		vc.Client.Close()
	}
}

// GetPrediction returns a cached prediction. Misses and errors both report false.
func (vc *ValkeyClient) GetPrediction(ctx context.Context, model, text string) (models.Prediction, bool) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Get().Key(PredictionKey(model, text)).Build(), 2)
	raw, err := res.ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[ValkeyClient] Cache lookup failed",
				slog.String("model", model),
				slog.String("error", err.Error()))
		}
		return models.Prediction{}, false
	}

	var pred models.Prediction
	if err := json.Unmarshal([]byte(raw), &pred); err != nil {
		slog.Warn("[ValkeyClient] Dropping unreadable cache entry",
			slog.String("error", err.Error()))
		return models.Prediction{}, false
	}
	return pred, true
}

func (vc *ValkeyClient) StorePrediction(ctx context.Context, model, text string, pred models.Prediction) error {
	payload, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	cmd := vc.Client.B().Set().
		Key(PredictionKey(model, text)).
		Value(string(payload)).
		ExSeconds(int64(vc.ttl / time.Second)).
		Build()

	if err := vc.DoWithRetry(ctx, cmd, 3).Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to store prediction: %w", err)
	}
	return nil
}

// PredictionKey hashes the text so keys stay bounded in size.
func PredictionKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_PREDICTION_PREFIX + ":" + model + ":" + hex.EncodeToString(sum[:])
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		err := result.Error()
		if err == nil || valkey.IsValkeyNil(err) || !isConnectionError(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
