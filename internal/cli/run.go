package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/pipeline"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/youtube"
	"github.com/forPelevin/fallacycheck/internal/types"
)

const analyzeTimeout = 10 * time.Minute

func newAnalyzeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Fetch a video's transcript and list the fallacies found in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, e, args[0])
		},
	}
	cmd.Flags().String("out", "out", "Output directory")
	cmd.Flags().String("title", "", "Video title used in the report (defaults to the video id)")
	cmd.Flags().String("format", "text", "Output format: text or json")
	cmd.Flags().Bool("ass", false, "Also write the fallacies as an ASS subtitle track")
	cmd.Flags().String("video", "", "Local copy of the video, transcribed with whisper.cpp when captions are unavailable")
	cmd.Flags().Bool("burn", false, "Render --video with the annotations burned in (needs ffmpeg)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, arg string) error {
	outDir, _ := cmd.Flags().GetString("out")
	title, _ := cmd.Flags().GetString("title")
	format, _ := cmd.Flags().GetString("format")
	writeASS, _ := cmd.Flags().GetBool("ass")
	localVideo, _ := cmd.Flags().GetString("video")
	burn, _ := cmd.Flags().GetBool("burn")

	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --format %q: want text or json", format)
	}
	if burn && localVideo == "" {
		return errors.New("--burn requires --video")
	}
	videoID, err := videoArg(arg)
	if err != nil {
		return err
	}
	burnInto := ""
	if burn {
		burnInto = localVideo
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	app, err := buildApp(ctx, e, localVideo)
	if err != nil {
		return err
	}
	defer app.Close()

	stderr := cmd.ErrOrStderr()
	out, err := app.Analyze(ctx, pipeline.AnalyzeOptions{
		VideoID:  videoID,
		Title:    title,
		OutDir:   outDir,
		WriteASS: writeASS,
		BurnInto: burnInto,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(stderr, format+"\n", args...)
		},
	})
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out.Report)
	}
	printFallacies(cmd.OutOrStdout(), out.Report.Fallacies)
	return nil
}

func printFallacies(w io.Writer, fs []types.Fallacy) {
	if len(fs) == 0 {
		fmt.Fprintln(w, "No fallacies detected.")
		return
	}
	for i, f := range fs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%s] %s\n", timecode.ToText(f.Timestamp), f.Type)
		if f.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", f.Explanation)
		}
		if f.Context != "" {
			fmt.Fprintf(w, "  > %s\n", f.Context)
		}
	}
}

func videoArg(arg string) (string, error) {
	id := youtube.ExtractVideoID(arg)
	if id == "" {
		return "", fmt.Errorf("invalid video %q: want a YouTube URL or 11-character video id", arg)
	}
	return id, nil
}

func buildApp(ctx context.Context, e *env, localVideo string) (*pipeline.App, error) {
	cfg := pipeline.Config{Settings: e.cfg, Logger: e.logger, LocalVideo: localVideo}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return pipeline.Build(ctx, cfg)
}
