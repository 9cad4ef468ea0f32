package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reddit-embeddings/internal/app"
	"reddit-embeddings/internal/event"
	"reddit-embeddings/internal/logger"
	"reddit-embeddings/internal/updater"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [file]",
	Short: "Run the handler once on a change event read from a file or stdin",
	Long: `invoke decodes one change event (Extended JSON, as delivered by a database
trigger) and runs the embedding handler on it exactly once. The outcome is printed;
the exit status is 0 whatever the outcome, as with any other trigger invocation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		// A single invocation never needs the configured event transport.
		cfg.TriggerProvider = "http"

		deps, err := app.BuildWith(cmd.Context(), cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
		if err != nil {
			return err
		}
		defer deps.Close()

		return runInvoke(cmd.Context(), in, cmd.OutOrStdout(), deps.Updater)
	},
}

func runInvoke(ctx context.Context, in io.Reader, out io.Writer, u *updater.Updater) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}
	ev, err := event.Decode(data)
	if err != nil {
		return err
	}
	outcome := u.Handle(ctx, ev)
	_, err = fmt.Fprintf(out, "%s %s\n", ev.FullDocument.IDString(), outcome)
	return err
}
