package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMEOUT = 5 * time.Second

type HealthChecker interface {
	Health(ctx context.Context) error
}

// CheckOnce runs a single bounded health check and stores the result.
func CheckOnce(ctx context.Context, checker HealthChecker, healthy *atomic.Bool) bool {
	checkCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
	defer cancel()

	err := checker.Health(checkCtx)
	isHealthy := err == nil
	was := healthy.Swap(isHealthy)

	switch {
	case !isHealthy:
		slog.Warn("[HealthCheck] Prediction service is unhealthy",
			slog.String("error", err.Error()))
	case !was:
		slog.Info("[HealthCheck] Prediction service recovered")
	}
	return isHealthy
}

// MonitorPredictHealth checks immediately and then on every interval until ctx
// is done.
func MonitorPredictHealth(ctx context.Context, checker HealthChecker, healthy *atomic.Bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	CheckOnce(ctx, checker, healthy)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CheckOnce(ctx, checker, healthy)
		}
	}
}
