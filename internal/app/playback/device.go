package playback

// Device is the single streaming audio element the engine drives.
// Load replaces the source and rewinds to the start without playing.
type Device interface {
	Load(src string)
	Play()
	Pause()
	Seek(seconds float64)
}

// DeviceEvents receives what the device reports back.
// Only the engine implements it; a factory gets the engine's sink once.
//
// load identifies the source an event belongs to: it is the number of Load
// calls the device had received when that source was loaded. Events for an
// older load are ignored.
type DeviceEvents interface {
	TimeUpdate(load uint64, current, duration float64)
	Ended(load uint64)
}

// DeviceFactory creates the device on first use, wiring its events to sink.
type DeviceFactory func(sink DeviceEvents) Device

// deviceEvents routes device callbacks into the engine.
type deviceEvents struct {
	e *Engine
}

func (d deviceEvents) TimeUpdate(load uint64, current, duration float64) {
	d.e.onTimeUpdate(load, current, duration)
}

func (d deviceEvents) Ended(load uint64) {
	d.e.onEnded(load)
}
