package playback

// EventType represents a playback event type.
type EventType int

const (
	EventQueueChanged EventType = iota // Queue replaced and a new entry loaded
	EventTrackChanged                  // Moved to another entry of the same queue
	EventStateChanged                  // Play/pause toggled
	EventProgress                      // Device reported position or duration
	EventSeeked                        // Position set by the user
	EventCleared                       // Queue emptied
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQueueChanged:
		return "queue_changed"
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventSeeked:
		return "seeked"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// MarshalText encodes the event type by name.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Event represents a playback event.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"state"`
}

// Observer receives every state change of the engine.
// It is called outside the engine lock and must not block for long.
type Observer interface {
	PlaybackChanged(Event)
}
