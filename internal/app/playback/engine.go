package playback

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/jfplayer/internal/domain/track"
)

// Config holds engine configuration.
type Config struct {
	Observer Observer   // Notified after every state change (optional)
	Rand     *rand.Rand // Shuffle source (optional, defaults to the global source)
}

// Engine manages the playback queue and the audio device.
// Invalid transitions are silent no-ops.
type Engine struct {
	mu sync.Mutex

	// Queue management
	queue []track.QueueEntry
	index int

	// Current track state
	current  *track.Track
	playing  bool
	progress float64
	duration float64
	version  uint64

	device    Device
	loads     uint64 // Load calls made on device
	newDevice DeviceFactory
	observer  Observer
	intn      func(n int) int
}

// New creates a new playback engine. The device is created on first use.
func New(factory DeviceFactory, config Config) *Engine {
	intn := rand.IntN
	if config.Rand != nil {
		intn = config.Rand.IntN
	}
	return &Engine{
		index:     -1,
		newDevice: factory,
		observer:  config.Observer,
		intn:      intn,
	}
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// SetQueue replaces the queue and starts playing at start, or at the first entry
// when start is nil or not in tracks.
func (e *Engine) SetQueue(tracks []track.Track, start *track.Track) {
	e.update(EventQueueChanged, func() bool {
		e.setQueueLocked(tracks, start)
		return true
	})
}

// PlayAll plays tracks from the first one. An empty list changes nothing.
func (e *Engine) PlayAll(tracks []track.Track) {
	if len(tracks) == 0 {
		return
	}
	e.SetQueue(tracks, nil)
}

// PlayAllShuffled plays a random permutation of tracks. An empty list changes nothing.
func (e *Engine) PlayAllShuffled(tracks []track.Track) {
	if len(tracks) == 0 {
		return
	}
	e.update(EventQueueChanged, func() bool {
		e.setQueueLocked(shuffle(tracks, e.intn), nil)
		return true
	})
}

// PlayTrack plays t. With a non-empty queueContext the queue becomes that list;
// if t is not part of it nothing is loaded and the engine stays stopped.
// Without a context, t is played from its position in the current queue, or
// alone when it is not queued.
func (e *Engine) PlayTrack(t track.Track, queueContext []track.Track) {
	e.update(EventQueueChanged, func() bool {
		switch {
		case len(queueContext) > 0:
			e.queue = entries(queueContext)
			e.index = track.IndexOf(e.queue, t.ID)
			if e.index < 0 {
				zlog.Warn().Msgf("playback: track %s is not part of its queue context", t.ID)
			}
		case track.IndexOf(e.queue, t.ID) >= 0:
			e.index = track.IndexOf(e.queue, t.ID)
		default:
			e.queue = entries([]track.Track{t})
			e.index = 0
		}
		e.loadLocked(true)
		return true
	})
}

// Toggle flips between playing and paused.
func (e *Engine) Toggle() {
	e.update(EventStateChanged, func() bool {
		if e.current == nil {
			return false
		}
		if e.playing {
			e.deviceLocked().Pause()
		} else {
			e.deviceLocked().Play()
		}
		e.playing = !e.playing
		return true
	})
}

// Pause pauses the current track.
func (e *Engine) Pause() {
	e.update(EventStateChanged, func() bool {
		if e.current == nil {
			return false
		}
		e.playing = false
		e.deviceLocked().Pause()
		return true
	})
}

// Resume resumes the current track.
func (e *Engine) Resume() {
	e.update(EventStateChanged, func() bool {
		if e.current == nil {
			return false
		}
		e.playing = true
		e.deviceLocked().Play()
		return true
	})
}

// Seek jumps to seconds and reports it as the progress right away.
func (e *Engine) Seek(seconds float64) {
	e.update(EventSeeked, func() bool {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return false
		}
		e.deviceLocked().Seek(seconds)
		e.progress = seconds
		return true
	})
}

// Next plays the following queue entry, if any.
func (e *Engine) Next() {
	e.update(EventTrackChanged, e.nextLocked)
}

// Prev plays the preceding queue entry, if any.
func (e *Engine) Prev() {
	e.update(EventTrackChanged, func() bool {
		if e.index <= 0 {
			return false
		}
		e.index--
		e.loadLocked(true)
		return true
	})
}

// Clear stops playback and empties the queue.
func (e *Engine) Clear() {
	e.update(EventCleared, func() bool {
		if e.current != nil {
			e.deviceLocked().Pause()
		}
		e.playing = false
		e.queue = nil
		e.index = -1
		e.current = nil
		e.progress = 0
		e.duration = 0
		return true
	})
}

// onTimeUpdate records the device position, and the duration once it is known.
func (e *Engine) onTimeUpdate(load uint64, current, duration float64) {
	e.update(EventProgress, func() bool {
		if load != e.loads {
			return false
		}
		e.progress = current
		if validDuration(duration) {
			e.duration = duration
		}
		return true
	})
}

// onEnded advances past the track that finished, unless another one has
// been loaded since.
func (e *Engine) onEnded(load uint64) {
	e.update(EventTrackChanged, func() bool {
		if load != e.loads {
			zlog.Debug().Msgf("playback: ignoring end of load %d, current load is %d", load, e.loads)
			return false
		}
		return e.nextLocked()
	})
}

// nextLocked must be called with lock held.
func (e *Engine) nextLocked() bool {
	if e.index < 0 || e.index >= len(e.queue)-1 {
		return false
	}
	e.index++
	e.loadLocked(true)
	return true
}

// update runs fn under the lock and publishes a snapshot if it changed anything.
func (e *Engine) update(typ EventType, fn func() bool) {
	e.mu.Lock()
	if !fn() {
		e.mu.Unlock()
		return
	}
	e.version++
	ev := Event{Type: typ, Snapshot: e.snapshotLocked()}
	e.mu.Unlock()

	if typ != EventProgress {
		zlog.Debug().Msgf("playback: %s: index=%d/%d state=%s title=%q",
			typ, ev.Snapshot.Index, len(ev.Snapshot.Queue), ev.Snapshot.State, ev.Snapshot.CurrentTitle)
	}
	if e.observer != nil {
		e.observer.PlaybackChanged(ev)
	}
}

// setQueueLocked must be called with lock held.
func (e *Engine) setQueueLocked(tracks []track.Track, start *track.Track) {
	e.queue = entries(tracks)
	e.index = 0
	if start != nil {
		if i := track.IndexOf(e.queue, start.ID); i >= 0 {
			e.index = i
		}
	}
	e.loadLocked(true)
}

// loadLocked points the device at the entry under index.
// Must be called with lock held.
func (e *Engine) loadLocked(autoplay bool) {
	e.current = nil
	if e.index >= 0 && e.index < len(e.queue) {
		t := e.queue[e.index].Track
		e.current = &t
	}

	src := ""
	if e.current != nil {
		src = StreamPath(e.current.ID)
	}

	d := e.deviceLocked()
	d.Load(src)
	e.loads++
	e.progress = 0
	e.duration = 0

	if e.current == nil {
		e.playing = false
		return
	}
	if autoplay {
		d.Play()
		e.playing = true
	}
}

// deviceLocked returns the device, creating it on first use.
// Must be called with lock held.
func (e *Engine) deviceLocked() Device {
	if e.device == nil {
		e.device = e.newDevice(deviceEvents{e: e})
	}
	return e.device
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:  e.version,
		Queue:    lo.Map(e.queue, func(q track.QueueEntry, _ int) track.Track { return q.Track }),
		Index:    e.index,
		Playing:  e.playing,
		Progress: e.progress,
		Duration: e.duration,
	}
	if e.current != nil {
		c := *e.current
		s.Current = &c
	}
	s.fill()
	return s
}

func entries(tracks []track.Track) []track.QueueEntry {
	return lo.Map(tracks, func(t track.Track, _ int) track.QueueEntry {
		return track.QueueEntry{Track: t}
	})
}

// shuffle returns a Fisher-Yates permutation of tracks; the input is not modified.
func shuffle(tracks []track.Track, intn func(n int) int) []track.Track {
	out := slices.Clone(tracks)
	for i := len(out) - 1; i > 0; i-- {
		j := intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
