package main

import (
	"os"

	"github.com/spacesedan/sentilens/config"
	"github.com/spacesedan/sentilens/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	if err := newRootCmd(cfg).Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}
