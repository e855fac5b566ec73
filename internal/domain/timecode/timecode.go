// Package timecode converts between "M:SS" / "H:MM:SS" caption timestamps and
// whole seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxSeconds is the largest timestamp ToSeconds accepts.
const MaxSeconds = math.MaxInt32

// ToSeconds parses "M:SS" or "H:MM:SS". ok is false for anything else,
// including out-of-range seconds (and minutes in the three-part form) and
// values past MaxSeconds.
func ToSeconds(text string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, ok := parseUint(p)
		if !ok {
			return 0, false
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 2:
		m, s := nums[0], nums[1]
		if s >= 60 || m > (MaxSeconds-s)/60 {
			return 0, false
		}
		return m*60 + s, true
	case 3:
		h, m, s := nums[0], nums[1], nums[2]
		if s >= 60 || m >= 60 || h > (MaxSeconds-m*60-s)/3600 {
			return 0, false
		}
		return h*3600 + m*60 + s, true
	default:
		return 0, false
	}
}

// ToText formats seconds as "M:SS", or "H:MM:SS" once an hour is reached.
func ToText(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FromDuration truncates d to whole seconds.
func FromDuration(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func Duration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
