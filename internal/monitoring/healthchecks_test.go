package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Health(ctx context.Context) error { return f(ctx) }

func TestCheckOnce(t *testing.T) {
	healthy := &atomic.Bool{}
	healthy.Store(true)

	assert.False(t, CheckOnce(context.Background(), checkerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), healthy))
	assert.False(t, healthy.Load())

	assert.True(t, CheckOnce(context.Background(), checkerFunc(func(context.Context) error {
		return nil
	}), healthy))
	assert.True(t, healthy.Load())
}

func TestMonitorPredictHealth_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var checks atomic.Int32
	healthy := &atomic.Bool{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		MonitorPredictHealth(ctx, checkerFunc(func(context.Context) error {
			checks.Add(1)
			return nil
		}), healthy, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return checks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.True(t, healthy.Load())
}
