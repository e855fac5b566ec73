package fallacies

import (
	"regexp"
	"strings"

	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/types"
)

// ContextTolerance is how close (in seconds) a segment must be to a fallacy
// to be used as its context excerpt.
const ContextTolerance = 5.0

var (
	timestampRE = regexp.MustCompile(`\[(\d{1,2}:\d{2}(?::\d{2})?)\]`)
	fieldRE     = regexp.MustCompile(`(?i)\b(type|fallacy|explanation|description)\s*:\s*(.*)`)
)

type state int

const (
	awaitingTimestamp state = iota
	haveTimestamp
	haveType
	haveExplanation
	complete
)

func (s state) String() string {
	switch s {
	case awaitingTimestamp:
		return "awaiting-timestamp"
	case haveTimestamp:
		return "have-timestamp"
	case haveType:
		return "have-type"
	case haveExplanation:
		return "have-explanation"
	case complete:
		return "complete"
	default:
		return "unknown"
	}
}

type machine struct {
	state state
	cur   types.Fallacy
	out   []types.Fallacy

	segs  []types.Segment
	newID func() string
}

func (m *machine) timestamp(ts int, ok bool) {
	m.flush()
	if !ok {
		// An unreadable timestamp cannot anchor a record; drop whatever follows
		// until the next bracketed timestamp.
		m.state = awaitingTimestamp
		return
	}
	m.cur = types.Fallacy{Timestamp: ts}
	m.state = haveTimestamp
}

func (m *machine) setType(v string) {
	switch m.state {
	case awaitingTimestamp:
		return
	case haveExplanation, complete:
		m.cur.Type = v
		m.state = complete
	default:
		m.cur.Type = v
		m.state = haveType
	}
	if v == "" {
		m.regress()
	}
}

func (m *machine) setExplanation(v string) {
	switch m.state {
	case awaitingTimestamp:
		return
	case haveType, complete:
		m.cur.Explanation = v
		m.state = complete
	default:
		m.cur.Explanation = v
		m.state = haveExplanation
	}
	if v == "" {
		m.regress()
	}
}

// regress recomputes the state after a field was cleared by an empty value.
func (m *machine) regress() {
	switch {
	case m.cur.Type != "" && m.cur.Explanation != "":
		m.state = complete
	case m.cur.Type != "":
		m.state = haveType
	case m.cur.Explanation != "":
		m.state = haveExplanation
	default:
		m.state = haveTimestamp
	}
}

// flush emits the in-progress record only if it is complete.
func (m *machine) flush() {
	if m.state == complete {
		f := m.cur
		f.ID = m.newID()
		f.Context = ContextFor(m.segs, f.Timestamp)
		m.out = append(m.out, f)
	}
	m.cur = types.Fallacy{}
	m.state = awaitingTimestamp
}

func (m *machine) field(line string) {
	fm := fieldRE.FindStringSubmatch(line)
	if fm == nil {
		return
	}
	v := cleanValue(fm[2])
	switch strings.ToLower(fm[1]) {
	case "type", "fallacy":
		m.setType(v)
	case "explanation", "description":
		m.setExplanation(v)
	}
}

// Parse reads a model completion into fallacy records. Records are emitted in
// completion order and only once timestamp, type and explanation are all set.
// Unparsable input yields an empty result, never an error.
func Parse(completion string, segs []types.Segment, newID func() string) []types.Fallacy {
	m := &machine{segs: segs, newID: newID, out: []types.Fallacy{}}
	for _, line := range strings.Split(completion, "\n") {
		line = strings.TrimRight(line, "\r")
		// Any bracketed time starts a new record, even one quoted inside an
		// explanation; the unfinished record before it is dropped.
		if loc := timestampRE.FindStringSubmatchIndex(line); loc != nil {
			ts, ok := timecode.ToSeconds(line[loc[2]:loc[3]])
			m.timestamp(ts, ok)
			// "[1:30] Type: Straw Man" carries the type on the same line.
			m.field(line[loc[1]:])
			continue
		}
		m.field(line)
	}
	m.flush()
	return m.out
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_"))
}
