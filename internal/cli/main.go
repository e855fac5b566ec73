package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.Load)
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, apperr.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

// env carries what every subcommand needs after flags are parsed.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	cleanup func() error
}

func newRootCmd(load func() config.Config) *cobra.Command {
	e := &env{cleanup: func() error { return nil }}

	root := &cobra.Command{
		Use:           "fallacycheck",
		Short:         "Flag logical fallacies in YouTube videos from their captions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			e.cfg = load()
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				e.logger = slog.New(slog.DiscardHandler)
				return
			}
			e.logger, e.cleanup = config.SetupLogger(e.cfg.LogFile, e.cfg.LogLevel)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.cleanup()
		},
	}
	root.PersistentFlags().BoolP("quiet", "q", false, "Disable logging")

	root.AddCommand(
		newAnalyzeCmd(e),
		newTranscriptCmd(e),
		newKeyCmd(e),
		newServeCmd(e),
	)
	return root
}
