package transcript

import (
	"regexp"
	"strings"

	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/types"
)

const separator = " - "

var lineRE = regexp.MustCompile(`^(\d{1,2}:\d{2}(?::\d{2})?) - (.+)$`)

// Parse turns the formatted transcript back into segments. Lines that do not
// look like "<ts> - <text>", or whose timestamp is out of range, are skipped.
func Parse(formatted string) []types.Segment {
	if formatted == "" {
		return nil
	}
	lines := strings.Split(formatted, "\n")
	out := make([]types.Segment, 0, len(lines))
	for _, ln := range lines {
		m := lineRE.FindStringSubmatch(strings.TrimRight(ln, "\r"))
		if m == nil {
			continue
		}
		ts, ok := timecode.ToSeconds(m[1])
		if !ok {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		out = append(out, types.Segment{Timestamp: ts, Text: text})
	}
	return out
}

// Format renders one "<ts> - <text>" line per segment. Segments with blank
// text are dropped.
func Format(segs []types.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(timecode.ToText(s.Timestamp))
		b.WriteString(separator)
		b.WriteString(text)
	}
	return b.String()
}
