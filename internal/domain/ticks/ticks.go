// Package ticks converts Jellyfin tick durations to seconds and display text.
package ticks

import (
	"fmt"
	"math"
)

// PerSecond is the number of Jellyfin ticks in one second.
const PerSecond = 10_000_000

// ToSeconds converts ticks to whole seconds (floor).
// Zero or negative ticks yield 0.
func ToSeconds(ticks int64) int64 {
	if ticks <= 0 {
		return 0
	}
	return ticks / PerSecond
}

// PtrToSeconds is ToSeconds for optional metadata fields.
func PtrToSeconds(ticks *int64) int64 {
	if ticks == nil {
		return 0
	}
	return ToSeconds(*ticks)
}

// FormatSeconds renders seconds as "M:SS".
// Negative or non-finite input renders as "0:00".
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return "0:00"
	}
	m := int64(math.Floor(sec / 60))
	s := int64(math.Floor(math.Mod(sec, 60)))
	return fmt.Sprintf("%d:%02d", m, s)
}

// Format renders a tick duration as "M:SS".
func Format(ticks *int64) string {
	return FormatSeconds(float64(PtrToSeconds(ticks)))
}
