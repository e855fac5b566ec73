package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fallacycheck/internal/domain/transcript"
	"github.com/forPelevin/fallacycheck/internal/usecase"
)

func newTranscriptCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <video>",
		Short: "Print a video's timestamped transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := videoArg(args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
			defer cancel()
			app, err := buildApp(ctx, e, "")
			if err != nil {
				return err
			}
			defer app.Close()

			v, _, err := app.Usecase.LoadTranscript(ctx, usecase.Input{VideoID: videoID})
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), v.Transcript)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(transcript.Parse(v.Transcript))
		},
	}
	cmd.Flags().Bool("json", false, "Print parsed segments as JSON")
	return cmd
}
