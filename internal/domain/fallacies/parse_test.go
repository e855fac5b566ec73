package fallacies

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/fallacycheck/internal/types"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("f%d", n)
	}
}

func TestParse_TwoRecords(t *testing.T) {
	completion := strings.Join([]string{
		"[1:30] Type: Straw Man",
		"Explanation: Misrepresents the opposing view.",
		"[2:00] Type: Ad Hominem",
		"Explanation: Attacks the speaker.",
	}, "\n")

	got := Parse(completion, nil, seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, types.Fallacy{ID: "f1", Timestamp: 90, Type: "Straw Man", Explanation: "Misrepresents the opposing view."}, got[0])
	assert.Equal(t, types.Fallacy{ID: "f2", Timestamp: 120, Type: "Ad Hominem", Explanation: "Attacks the speaker."}, got[1])
}

func TestParse_TrailingIncompleteBlockDropped(t *testing.T) {
	completion := "[1:30] Type: Straw Man\nExplanation: x\n[2:00] Type: Ad Hominem\nExplanation: y\n[3:00]"
	got := Parse(completion, nil, seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, 120, got[1].Timestamp)
}

func TestParse_PartialRecordsDiscarded(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		want       []int
	}{
		{"missing explanation", "[0:10] Type: Red Herring\n[0:20] Type: Bandwagon\nExplanation: everyone does it", []int{20}},
		{"missing type", "[0:10]\nExplanation: orphan\n[0:20] Fallacy: Slippery Slope\nDescription: chain of doom", []int{20}},
		{"fields before any timestamp", "Type: Straw Man\nExplanation: nothing to anchor", nil},
		{"invalid bracket timestamp", "[1:75] Type: Straw Man\nExplanation: bad ts", nil},
		{"empty", "", nil},
		{"prose", "I found no clear fallacies in this transcript.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.completion, nil, seqIDs())
			var ts []int
			for _, f := range got {
				ts = append(ts, f.Timestamp)
			}
			assert.Equal(t, tt.want, ts)
		})
	}
}

func TestParse_QuotedTimeInExplanationStartsNewRecord(t *testing.T) {
	completion := strings.Join([]string{
		"[1:00] Type: Appeal to Authority",
		"Explanation: He said at [0:10] that experts agree.",
		"[2:00] Type: Straw Man",
		"Explanation: Misrepresents the view.",
	}, "\n")

	got := Parse(completion, nil, seqIDs())
	require.Len(t, got, 1)
	assert.Equal(t, 120, got[0].Timestamp)
	assert.Equal(t, "Straw Man", got[0].Type)
}

func TestParse_LenientFormatting(t *testing.T) {
	completion := strings.Join([]string{
		"Here is what I found:",
		"",
		"1. [1:02:03]",
		"**Type:** False Dichotomy",
		"**explanation:** Only two options are offered.\r",
		"[0:05] TYPE: Appeal to Emotion",
		"DESCRIPTION: Fear instead of evidence.",
		"Type: Appeal to Fear",
	}, "\n")

	got := Parse(completion, nil, seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, 3723, got[0].Timestamp)
	assert.Equal(t, "False Dichotomy", got[0].Type)
	assert.Equal(t, "Only two options are offered.", got[0].Explanation)
	// later Type line overwrites, order follows the completion, not time
	assert.Equal(t, 5, got[1].Timestamp)
	assert.Equal(t, "Appeal to Fear", got[1].Type)
}

func TestParse_ExplanationBeforeType(t *testing.T) {
	got := Parse("[0:30]\nExplanation: e\nType: t", nil, seqIDs())
	require.Len(t, got, 1)
	assert.Equal(t, "t", got[0].Type)
	assert.Equal(t, "e", got[0].Explanation)
}

func TestParse_AttachesContext(t *testing.T) {
	segs := []types.Segment{
		{Timestamp: 0, Text: "welcome"},
		{Timestamp: 88, Text: "my opponent wants open borders"},
		{Timestamp: 93, Text: "later"},
	}
	got := Parse("[1:30] Type: Straw Man\nExplanation: x\n[5:00] Type: Red Herring\nExplanation: y", segs, seqIDs())
	require.Len(t, got, 2)
	assert.Equal(t, "my opponent wants open borders", got[0].Context)
	assert.Equal(t, "", got[1].Context)
}

func TestMachine_StateTransitions(t *testing.T) {
	m := &machine{newID: seqIDs()}
	assert.Equal(t, "awaiting-timestamp", m.state.String())

	m.setType("ignored")
	assert.Equal(t, awaitingTimestamp, m.state)

	m.timestamp(10, true)
	assert.Equal(t, haveTimestamp, m.state)
	m.setType("Straw Man")
	assert.Equal(t, haveType, m.state)
	m.setExplanation("")
	assert.Equal(t, haveType, m.state)
	m.setExplanation("because")
	assert.Equal(t, complete, m.state)

	m.timestamp(20, true)
	require.Len(t, m.out, 1)
	assert.Equal(t, haveTimestamp, m.state)

	m.setExplanation("only explanation")
	assert.Equal(t, haveExplanation, m.state)
	m.flush()
	assert.Len(t, m.out, 1)
	assert.Equal(t, awaitingTimestamp, m.state)
}
