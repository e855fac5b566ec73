package fallacies

import (
	"strings"

	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/types"
)

// Sampling parameters sent with every detection request.
const (
	Temperature = 0.1
	MaxTokens   = 2000
)

const SystemPrompt = `You are an expert in logic and critical thinking. Your task is to analyze video transcripts and identify logical fallacies.

For each fallacy you find, provide:
1. The timestamp where it occurs (in the format [MM:SS] or [H:MM:SS])
2. The type of fallacy (e.g., Ad Hominem, Straw Man, False Dichotomy, Appeal to Authority, etc.)
3. A brief explanation of why this is a fallacy

Common logical fallacies to watch for:
- Ad Hominem: Attacking the person instead of the argument
- Straw Man: Misrepresenting someone's argument to make it easier to attack
- False Dichotomy: Presenting only two options when more exist
- Appeal to Authority: Using authority as evidence when it's not relevant
- Slippery Slope: Claiming one event will lead to extreme consequences without evidence
- Circular Reasoning: Using the conclusion as a premise
- Hasty Generalization: Drawing broad conclusions from limited evidence
- Red Herring: Introducing irrelevant information to distract from the main point
- Appeal to Emotion: Using emotions instead of logic to persuade
- Bandwagon: Arguing something is true because many believe it

Format your response as:
[TIMESTAMP] Type: FALLACY_NAME
Explanation: Brief explanation of the fallacy

Only identify clear, definitive fallacies. If you're uncertain, don't include it.`

const userPreamble = "Analyze the following YouTube video transcript for logical fallacies. " +
	"For each fallacy found, return the timestamp, type, and explanation."

// BuildUserPrompt renders the transcript as "[<ts>] <text>" lines after the
// fixed instruction preamble.
func BuildUserPrompt(segs []types.Segment) string {
	var b strings.Builder
	b.WriteString(userPreamble)
	b.WriteString("\n\n")
	for i, s := range segs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(timecode.ToText(s.Timestamp))
		b.WriteString("] ")
		b.WriteString(s.Text)
	}
	return b.String()
}
