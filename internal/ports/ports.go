package ports

import (
	"context"
	"time"

	"github.com/forPelevin/fallacycheck/internal/types"
)

// TranscriptSource returns the formatted transcript ("<ts> - <text>" per line)
// for a video.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Completer runs a single system + user chat completion and returns the text
// of the first choice.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// VideoCache memoizes fetched transcripts per video id. A miss is reported
// with ok=false and a nil error.
type VideoCache interface {
	Get(ctx context.Context, videoID string) (types.VideoData, bool, error)
	Put(ctx context.Context, videoID string, data types.VideoData, ttl time.Duration) error
}

// CredentialStore persists the completion provider's API key.
type CredentialStore interface {
	Get() (string, error)
	Set(key string) error
	Clear() error
}

// VideoRenderer burns a subtitle track into a local video file.
type VideoRenderer interface {
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
	BurnSubtitles(ctx context.Context, inVideo, assPath, outMP4 string) error
}

// AudioExtractor pulls a speech-to-text ready track out of a local video.
type AudioExtractor interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
}

// ASR turns a WAV file into timestamped segments.
type ASR interface {
	Transcribe(ctx context.Context, wavPath, workDir string) ([]types.Segment, error)
}
