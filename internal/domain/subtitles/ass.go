// Package subtitles renders detected fallacies as an ASS subtitle track so
// any player shows each annotation in sync with playback.
package subtitles

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/types"
)

// DefaultShow is how long an annotation stays on screen.
const DefaultShow = 6 * time.Second

const lineBudget = 48

type event struct {
	Start time.Duration
	End   time.Duration
	Title string
	Body  []string
}

// RenderFallacyASS emits one dialogue event per fallacy starting at its
// timestamp and lasting show (DefaultShow when <= 0). An event is cut short
// when the next fallacy starts, so at most one annotation is on screen.
func RenderFallacyASS(fs []types.Fallacy, show time.Duration) string {
	if show <= 0 {
		show = DefaultShow
	}
	events := buildEvents(fs, show)

	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ev := range events {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ev.Start))
		b.WriteString(",")
		b.WriteString(assTime(ev.End))
		b.WriteString(",Fallacy,,0,0,0,,")
		b.WriteString("{\\b1}")
		b.WriteString(ev.Title)
		b.WriteString("{\\b0}")
		for _, ln := range ev.Body {
			b.WriteString("\\N")
			b.WriteString(ln)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildEvents(fs []types.Fallacy, show time.Duration) []event {
	sorted := make([]types.Fallacy, len(fs))
	copy(sorted, fs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := make([]event, 0, len(sorted))
	for i, f := range sorted {
		start := timecode.Duration(f.Timestamp)
		end := start + show
		if i+1 < len(sorted) {
			if next := timecode.Duration(sorted[i+1].Timestamp); next > start && next < end {
				end = next
			}
		}
		title := sanitizeASS(f.Type)
		if title == "" {
			title = "Fallacy"
		}
		out = append(out, event{
			Start: start,
			End:   end,
			Title: fmt.Sprintf("%s (%s)", title, timecode.ToText(f.Timestamp)),
			Body:  wrap(sanitizeASS(f.Explanation), lineBudget),
		})
	}
	return out
}

// wrap packs words into lines of at most budget runes. A single word longer
// than budget gets a line of its own.
func wrap(text string, budget int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, w := range strings.Fields(text) {
		wl := len([]rune(w))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if curLen > 0 && nextLen > budget {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Fallacy, Inter, 44, &H00FFFFFF, &H000000FF, &H00000000, &H9A1E1E8C, 0,0,0,0,100,100,0,0,3,2,0,9, 60,60,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
