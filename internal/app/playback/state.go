// Package playback provides the playback queue engine driving a single audio device.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No current track
	StatePlaying              // Current track is playing
	StatePaused               // Current track is loaded but not playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
