package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/sentilens/config"
	"github.com/spacesedan/sentilens/internal/clients"
	"github.com/spacesedan/sentilens/internal/controller"
	"github.com/spacesedan/sentilens/internal/events"
)

type app struct {
	client    *clients.PredictClient
	ctrl      *controller.AnalysisController
	publisher *events.Publisher

	closers   []func()
	closeOnce sync.Once
}

type appOptions struct {
	baseURL string
	timeout time.Duration
	publish bool
}

func newApp(cfg config.Config, opts appOptions) (*app, error) {
	a := &app{
		client: clients.NewPredictClient(opts.baseURL, opts.timeout),
	}

	var ctrlOpts []controller.Option
	if opts.publish {
		if cfg.KafkaBroker == "" {
			slog.Warn("[App] --publish set but KAFKA_BROKER is empty, outcomes will not be published")
		} else {
			pub, err := events.NewPublisher(cfg.KafkaBroker, cfg.OutcomesTopic)
			if err != nil {
				return nil, err
			}
			a.publisher = pub
			a.closers = append(a.closers, pub.Close)
			ctrlOpts = append(ctrlOpts, controller.WithObserver(pub))
		}
	}

	a.ctrl = controller.New(a.client, ctrlOpts...)
	return a, nil
}

// OnClose registers fn to run when the app is closed.
func (a *app) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close runs the registered closers once, newest first. It flushes the
// outcome publisher, so it must run whether or not the command failed.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}
