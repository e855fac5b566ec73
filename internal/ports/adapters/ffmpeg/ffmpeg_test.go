package ffmpeg

import (
	"strings"
	"testing"
	"time"
)

func TestBurnArgs(t *testing.T) {
	got := strings.Join(burnArgs("in.mp4", `C:\runs\a:b.ass`, "out.mp4"), " ")
	want := `-y -i in.mp4 -vf subtitles=C\:\\runs\\a\:b.ass -c:v libx264 -preset veryfast -crf 20 -c:a copy out.mp4`
	if got != want {
		t.Fatalf("burnArgs:\n got %s\nwant %s", got, want)
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("12.500000\n")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", d)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Fatalf("expected error for non-numeric duration")
	}
}
