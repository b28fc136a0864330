package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/sentilens/config"
	"github.com/spacesedan/sentilens/internal/clients"
	"github.com/spacesedan/sentilens/internal/db"
	"github.com/spacesedan/sentilens/internal/logging"
	"github.com/spacesedan/sentilens/internal/predictd"
	"golang.org/x/sync/errgroup"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []predictd.Option

	if cfg.ValkeyAddress != "" {
		cache, err := clients.InitValkey(clients.ValkeyOptions{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			UseTLS:   cfg.ValkeyTLS,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			slog.Warn("[Main] Prediction cache disabled", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			opts = append(opts, predictd.WithCache(cache))
		}
	}

	if cfg.PredictionLogTable != "" {
		dynamo, err := clients.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			slog.Warn("[Main] Prediction log disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, predictd.WithRecorder(db.NewPredictionLog(dynamo, cfg.PredictionLogTable)))
			slog.Info("[Main] Recording predictions", slog.String("table", cfg.PredictionLogTable))
		}
	}

	predictServer := predictd.NewServer(opts...)
	srv := &http.Server{
		Addr:              cfg.PredictdAddr,
		Handler:           predictd.NewRouter(predictServer, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("[Main] Prediction server listening", slog.String("addr", cfg.PredictdAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("[Main] Shutting down prediction server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	predictServer.Wait()
	if err != nil {
		slog.Error("[Main] Prediction server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
