package cli

import (
	"github.com/spf13/cobra"

	"github.com/forPelevin/fallacycheck/internal/server"
)

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API and playback WebSocket for overlays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = e.cfg.ListenAddr
			}

			ctx := cmd.Context()
			app, err := buildApp(ctx, e, "")
			if err != nil {
				return err
			}
			defer app.Close()

			srv := server.New(server.Deps{
				Analyzer: app.Usecase,
				Keys:     app.Credentials,
				EnvKey:   func() string { return e.cfg.OpenRouterAPIKey },
				Logger:   e.logger,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (defaults to LISTEN_ADDR)")
	return cmd
}
