package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/domain/transcript"
	"github.com/forPelevin/fallacycheck/internal/ports"
)

// localTranscripts transcribes a local copy of the video with speech-to-text.
// The video id is ignored; the file is the video.
type localTranscripts struct {
	video   string
	workDir string
	audio   ports.AudioExtractor
	asr     ports.ASR
	log     *slog.Logger
}

func (l localTranscripts) Fetch(ctx context.Context, _ string) (string, error) {
	dir := filepath.Join(l.workDir, "runs", hash(l.video))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	wav := filepath.Join(dir, "audio.wav")

	l.log.Info("extracting audio", "video", l.video, "work_dir", dir)
	if err := l.audio.ExtractAudioMono16k(ctx, l.video, wav); err != nil {
		return "", err
	}
	l.log.Info("transcribing audio")
	segs, err := l.asr.Transcribe(ctx, wav, dir)
	if err != nil {
		return "", err
	}
	out := transcript.Format(segs)
	if out == "" {
		return "", fmt.Errorf("speech-to-text found no speech: %w", apperr.ErrNoTranscript)
	}
	return out, nil
}

// fallbackSource asks primary first and turns to secondary only when the
// captions are missing or the session cannot be signed.
type fallbackSource struct {
	primary   ports.TranscriptSource
	secondary ports.TranscriptSource
	log       *slog.Logger
}

func (f fallbackSource) Fetch(ctx context.Context, videoID string) (string, error) {
	text, err := f.primary.Fetch(ctx, videoID)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, apperr.ErrNoTranscript) && !errors.Is(err, apperr.ErrAuthRequired) {
		return "", err
	}
	f.log.Warn("captions unavailable, transcribing local video", "video", videoID, "reason", err)
	return f.secondary.Fetch(ctx, videoID)
}
