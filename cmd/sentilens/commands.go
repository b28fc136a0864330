package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spacesedan/sentilens/config"
	"github.com/spacesedan/sentilens/internal/controller"
	"github.com/spacesedan/sentilens/internal/models"
	"github.com/spf13/cobra"
)

// newRootCmd builds the CLI. hooks run on every app the commands create.
func newRootCmd(cfg config.Config, hooks ...func(*app)) *cobra.Command {
	opts := appOptions{}
	var current *app

	root := &cobra.Command{
		Use:           "sentilens",
		Short:         "Submit text to a sentiment prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", cfg.PredictBaseURL, "prediction service base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", cfg.PredictTimeout, "request timeout")
	root.PersistentFlags().BoolVar(&opts.publish, "publish", false, "publish outcomes to Kafka (KAFKA_BROKER)")

	getApp := func() (*app, error) {
		if current != nil {
			return current, nil
		}
		a, err := newApp(cfg, opts)
		if err != nil {
			return nil, err
		}
		for _, hook := range hooks {
			hook(a)
		}
		current = a
		return a, nil
	}

	root.AddCommand(
		newModelsCmd(),
		newExamplesCmd(),
		newAnalyzeCmd(getApp),
		newHealthCmd(getApp),
		newReplCmd(cfg, getApp),
	)
	return root
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model identifiers the service accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printModels(cmd.OutOrStdout())
			return nil
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the example texts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printExamples(cmd.OutOrStdout())
			return nil
		},
	}
}

func newAnalyzeCmd(getApp func() (*app, error)) *cobra.Command {
	var (
		modelID string
		example int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Classify one text",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if example > 0 {
				if len(args) > 0 {
					return errors.New("use either --example or text arguments, not both")
				}
				text, err := exampleText(example)
				if err != nil {
					return err
				}
				a.ctrl.SelectExample(text)
			} else {
				a.ctrl.SetText(strings.Join(args, " "))
			}
			a.ctrl.SelectModel(modelID)

			_, submitErr := a.ctrl.SubmitCurrent(cmd.Context())
			state := a.ctrl.State()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(state); err != nil {
					return err
				}
			} else {
				printState(cmd.OutOrStdout(), state)
			}
			return submitErr
		},
	}

	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model identifier (see: sentilens models)")
	cmd.Flags().IntVarP(&example, "example", "e", 0, "use example N (see: sentilens examples)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resulting state as JSON")
	return cmd
}

func newHealthCmd(getApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the prediction service answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("%s is unhealthy: %w", a.client.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is healthy\n", a.client.BaseURL())
			return nil
		},
	}
}

// reportError prints errors the command has not already shown. Validation
// and request failures were rendered from the state, with the cause only
// logged.
func reportError(w io.Writer, err error) {
	var failure *controller.RequestFailure
	switch {
	case err == nil:
	case errors.Is(err, controller.ErrValidation), errors.As(err, &failure):
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}

func exampleText(n int) (string, error) {
	examples := models.Examples()
	if n < 1 || n > len(examples) {
		return "", fmt.Errorf("example must be between 1 and %d", len(examples))
	}
	return examples[n-1].Text, nil
}

func printModels(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, m := range models.Models() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.DisplayLabel, m.Type)
	}
	tw.Flush()
}

func printExamples(w io.Writer) {
	for i, ex := range models.Examples() {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, ex.Sentiment, ex.Text)
	}
}

func printState(w io.Writer, s models.InteractionState) {
	switch controller.ViewOf(s) {
	case controller.RenderPending:
		fmt.Fprintln(w, "Analyzing...")
	case controller.RenderError:
		fmt.Fprintf(w, "Error: %s\n", s.LastError)
	case controller.RenderResult:
		label := s.LastResult.Model
		if m, ok := models.LookupModel(s.LastResult.Model); ok {
			label = m.DisplayLabel
		}
		fmt.Fprintf(w, "Prediction: %s\nModel: %s\nText: %s\n", s.LastResult.Prediction, label, s.LastResult.Text)
	default:
		fmt.Fprintln(w, "Nothing analyzed yet.")
	}
}
