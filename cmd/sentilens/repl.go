package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spacesedan/sentilens/config"
	"github.com/spacesedan/sentilens/internal/controller"
	"github.com/spacesedan/sentilens/internal/models"
	"github.com/spacesedan/sentilens/internal/monitoring"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  :model <id>     select a model
  :example <n>    load example n
  :models         list models
  :examples       list examples
  :state          show the current state
  :health         show the last health check result
  :reset          clear text, model and result
  :quit           leave
Any other line is submitted as text.`

func newReplCmd(cfg config.Config, getApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session driven line by line from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			healthy := &atomic.Bool{}
			healthy.Store(true)
			var monitor sync.WaitGroup
			monitor.Add(1)
			go func() {
				defer monitor.Done()
				monitoring.MonitorPredictHealth(ctx, a.client, healthy, cfg.HealthCheckInterval)
			}()

			r := &repl{ctrl: a.ctrl, out: cmd.OutOrStdout(), healthy: healthy}
			r.run(ctx, cmd.InOrStdin())

			cancel()
			monitor.Wait()
			return nil
		},
	}
}

// repl submits in the background so the session stays editable while a
// request is pending, which is when the controller's in-flight guard applies.
type repl struct {
	ctrl    *controller.AnalysisController
	healthy *atomic.Bool

	outMu sync.Mutex
	out   io.Writer

	inflight sync.WaitGroup
}

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context, in io.Reader) {
	r.printf("%s\n", replHelp)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if !r.handle(ctx, line) {
			break
		}
	}
	r.inflight.Wait()
}

func (r *repl) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":quit", ":q":
		return false
	case ":help":
		r.printf("%s\n", replHelp)
	case ":model":
		r.ctrl.SelectModel(arg)
		r.printf("model: %s\n", arg)
	case ":example":
		n, err := strconv.Atoi(arg)
		if err != nil {
			r.printf("example needs a number\n")
			return true
		}
		text, err := exampleText(n)
		if err != nil {
			r.printf("%s\n", err)
			return true
		}
		r.ctrl.SelectExample(text)
		r.printf("text: %s\n", text)
	case ":models":
		r.outMu.Lock()
		printModels(r.out)
		r.outMu.Unlock()
	case ":examples":
		r.outMu.Lock()
		printExamples(r.out)
		r.outMu.Unlock()
	case ":state":
		r.outMu.Lock()
		printState(r.out, r.ctrl.State())
		r.outMu.Unlock()
	case ":health":
		r.printf("healthy: %t\n", r.healthy.Load())
	case ":reset":
		r.ctrl.Reset()
		r.printf("reset\n")
	case "":
		r.submit(ctx)
	default:
		if strings.HasPrefix(cmd, ":") {
			r.printf("unknown command %s\n", cmd)
			return true
		}
		r.ctrl.SetText(line)
		r.submit(ctx)
	}
	return true
}

func (r *repl) submit(ctx context.Context) {
	state := r.ctrl.State()
	if state.IsPending {
		r.printf("A request is already in flight, wait for it to finish.\n")
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		result, err := r.ctrl.Submit(ctx, state.InputText, state.SelectedModelID)
		var failure *controller.RequestFailure
		switch {
		case err == nil:
			r.outMu.Lock()
			printState(r.out, models.InteractionState{LastResult: &result})
			r.outMu.Unlock()
		case errors.Is(err, controller.ErrRequestInFlight):
			r.printf("A request is already in flight, wait for it to finish.\n")
		case errors.Is(err, controller.ErrStaleResponse):
			r.printf("Discarded a response that arrived after reset.\n")
		case errors.Is(err, controller.ErrValidation):
			r.printf("Error: %s\n", controller.ValidationMessage)
		case errors.As(err, &failure):
			r.printf("Error: %s\n", controller.RequestFailureMessage)
		default:
			r.printf("Error: %s\n", err)
		}
	}()
}
