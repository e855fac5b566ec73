package timecode

import (
	"testing"
	"time"
)

func TestToSeconds_Table(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"1:30", 90, true},
		{"0:00", 0, true},
		{"1:02:03", 3723, true},
		{"12:00", 720, true},
		{"75:10", 4510, true},
		{"1:75", 0, false},
		{"1:60:00", 0, false},
		{"1:00:60", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"1", 0, false},
		{"1:2:3:4", 0, false},
		{"1:-5", 0, false},
		{"1:+5", 0, false},
		{"a:30", 0, false},
		{"35791394:07", MaxSeconds, true},
		{"35791394:08", 0, false},
		{"596523:14:07", MaxSeconds, true},
		{"596523:14:08", 0, false},
		{"999999999999999999:00", 0, false},
		{"99999999999999999999:00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ToSeconds(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ToSeconds(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ToSeconds(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestToText_Format(t *testing.T) {
	tests := map[int]string{
		0:     "0:00",
		9:     "0:09",
		90:    "1:30",
		600:   "10:00",
		3599:  "59:59",
		3600:  "1:00:00",
		3723:  "1:02:03",
		-4:    "0:00",
		36000: "10:00:00",
	}
	for in, want := range tests {
		if got := ToText(in); got != want {
			t.Fatalf("ToText(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for s := 0; s < 24*3600; s++ {
		got, ok := ToSeconds(ToText(s))
		if !ok || got != s {
			t.Fatalf("round trip failed for %d: got %d ok=%v (text %q)", s, got, ok, ToText(s))
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	if got := FromDuration(90*time.Second + 900*time.Millisecond); got != 90 {
		t.Fatalf("FromDuration = %d, want 90", got)
	}
	if got := FromDuration(-time.Second); got != 0 {
		t.Fatalf("FromDuration(negative) = %d, want 0", got)
	}
	if got := Duration(3723); got != time.Hour+2*time.Minute+3*time.Second {
		t.Fatalf("Duration = %v", got)
	}
}
