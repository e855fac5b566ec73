package fallacies

import (
	"math"

	"github.com/forPelevin/fallacycheck/internal/types"
)

// PlaybackTolerance is the window (seconds) in which a fallacy counts as
// active during playback.
const PlaybackTolerance = 2.0

func IsActive(f types.Fallacy, position, tolerance float64) bool {
	return math.Abs(float64(f.Timestamp)-position) < tolerance
}

// Active picks the fallacy to surface at position. When several fall inside
// the window the one nearest in time wins; equal distances go to the earlier
// record in sequence order.
func Active(fs []types.Fallacy, position, tolerance float64) (types.Fallacy, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, f := range fs {
		if !IsActive(f, position, tolerance) {
			continue
		}
		d := math.Abs(float64(f.Timestamp) - position)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return types.Fallacy{}, false
	}
	return fs[best], true
}

// ContextFor returns the text of the first segment within ContextTolerance of
// ts, or "".
func ContextFor(segs []types.Segment, ts int) string {
	for _, s := range segs {
		if math.Abs(float64(s.Timestamp-ts)) < ContextTolerance {
			return s.Text
		}
	}
	return ""
}

// Tracker follows playback position ticks and reports when the surfaced
// fallacy appears, switches, or clears.
type Tracker struct {
	fallacies []types.Fallacy
	tolerance float64

	current types.Fallacy
	showing bool
}

func NewTracker(fs []types.Fallacy, tolerance float64) *Tracker {
	if tolerance <= 0 {
		tolerance = PlaybackTolerance
	}
	return &Tracker{fallacies: fs, tolerance: tolerance}
}

// Update feeds a playback position. changed is true only when the surfaced
// fallacy differs from the previous tick; active reports whether one is shown.
func (t *Tracker) Update(position float64) (f types.Fallacy, active, changed bool) {
	next, ok := Active(t.fallacies, position, t.tolerance)
	switch {
	case ok && (!t.showing || t.current.ID != next.ID):
		t.current, t.showing = next, true
		return next, true, true
	case !ok && t.showing:
		t.current, t.showing = types.Fallacy{}, false
		return types.Fallacy{}, false, true
	default:
		return t.current, t.showing, false
	}
}

// Current returns the surfaced fallacy, if any.
func (t *Tracker) Current() (types.Fallacy, bool) {
	return t.current, t.showing
}
