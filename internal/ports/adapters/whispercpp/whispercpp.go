// Package whispercpp transcribes local audio with the whisper.cpp CLI, for
// videos whose captions cannot be fetched.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/fallacycheck/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// output is the subset of whisper.cpp's -oj file we read. Offsets are
// milliseconds from the start of the audio.
type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string) ([]types.Segment, error) {
	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	return decode(jb)
}

func decode(b []byte) ([]types.Segment, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode whisper output: %w", err)
	}
	segs := make([]types.Segment, 0, len(out.Transcription))
	for _, t := range out.Transcription {
		text := strings.TrimSpace(t.Text)
		// whisper.cpp marks silence and music with bracketed tags
		if text == "" || (strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) {
			continue
		}
		segs = append(segs, types.Segment{Timestamp: int(t.Offsets.From / 1000), Text: text})
	}
	return segs, nil
}
