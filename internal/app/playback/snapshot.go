package playback

import (
	"math"
	"net/url"

	"github.com/osa030/jfplayer/internal/domain/ticks"
	"github.com/osa030/jfplayer/internal/domain/track"
)

// StreamPrefix is the path of the streaming proxy the device loads from.
const StreamPrefix = "/api/stream/"

// StreamPath returns the proxy URL for a track.
func StreamPath(trackID string) string {
	return StreamPrefix + url.PathEscape(trackID)
}

// Snapshot is a read-only copy of the engine state with its derived values.
type Snapshot struct {
	Version  uint64        `json:"version"`
	Queue    []track.Track `json:"queue"`
	Index    int           `json:"index"`
	Current  *track.Track  `json:"current,omitempty"`
	Playing  bool          `json:"playing"`
	Progress float64       `json:"progress"`
	Duration float64       `json:"duration"`
	State    State         `json:"status"`

	HasTrack          bool    `json:"hasTrack"`
	CanNext           bool    `json:"canNext"`
	CanPrev           bool    `json:"canPrev"`
	EffectiveDuration float64 `json:"effectiveDuration"`
	ProgressPercent   float64 `json:"progressPercent"`
	AudioSrc          string  `json:"audioSrc"`
	CurrentTitle      string  `json:"currentTitle"`
}

// fill computes the derived values from the stored ones.
func (s *Snapshot) fill() {
	s.HasTrack = s.Current != nil
	s.CanNext = s.Index >= 0 && s.Index < len(s.Queue)-1
	s.CanPrev = s.Index > 0
	s.EffectiveDuration = effectiveDuration(s.Duration, s.Current)
	if s.EffectiveDuration > 0 {
		s.ProgressPercent = 100 * s.Progress / s.EffectiveDuration
	}

	switch {
	case s.Current == nil:
		s.State = StateIdle
	case s.Playing:
		s.State = StatePlaying
	default:
		s.State = StatePaused
	}

	if s.Current != nil {
		s.AudioSrc = StreamPath(s.Current.ID)
		s.CurrentTitle = s.Current.Name
	}
}

// effectiveDuration prefers the measured duration and falls back to track metadata.
func effectiveDuration(measured float64, current *track.Track) float64 {
	if validDuration(measured) {
		return measured
	}
	if current != nil {
		return float64(ticks.PtrToSeconds(current.RunTimeTicks))
	}
	return 0
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}
