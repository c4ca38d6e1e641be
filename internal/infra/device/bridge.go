// Package device drives the browser's audio element over a websocket.
package device

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/app/playback"
)

const writeWait = 5 * time.Second

// Command is sent to the player page. A load command carries the load
// number the page must echo in its events.
type Command struct {
	Cmd      string   `json:"cmd"`
	Src      *string  `json:"src,omitempty"`
	Load     uint64   `json:"load,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

// Message is received from the player page.
type Message struct {
	Event       string  `json:"event"`
	Load        uint64  `json:"load"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// Bridge is a playback.Device backed by at most one attached browser.
// While no browser is attached it remembers what the engine asked for and
// replays it on the next attach.
type Bridge struct {
	mu   sync.Mutex
	conn *websocket.Conn
	sink playback.DeviceEvents

	loads    uint64
	src      string
	playing  bool
	position float64
}

// NewBridge creates a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Factory returns a playback.DeviceFactory yielding this bridge.
func (b *Bridge) Factory() playback.DeviceFactory {
	return func(sink playback.DeviceEvents) playback.Device {
		b.mu.Lock()
		b.sink = sink
		b.mu.Unlock()
		return b
	}
}

// Load implements playback.Device.
func (b *Bridge) Load(src string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	b.src = src
	b.playing = false
	b.position = 0
	b.sendLocked(Command{Cmd: "load", Src: &src, Load: b.loads})
}

// Play implements playback.Device.
func (b *Bridge) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = true
	b.sendLocked(Command{Cmd: "play"})
}

// Pause implements playback.Device.
func (b *Bridge) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	b.sendLocked(Command{Cmd: "pause"})
}

// Seek implements playback.Device.
func (b *Bridge) Seek(seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = seconds
	b.sendLocked(Command{Cmd: "seek", Position: &seconds})
}

// Attached reports whether a browser is connected.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Attach makes conn the active browser and serves it until it disconnects
// or is replaced. It replays the remembered device state first.
func (b *Bridge) Attach(conn *websocket.Conn) error {
	b.mu.Lock()
	if b.conn != nil {
		zlog.Info().Msg("device: replacing attached browser")
		b.conn.Close()
	}
	b.conn = conn
	b.replayLocked()
	b.mu.Unlock()

	zlog.Info().Msgf("device: browser attached: remote=%s", conn.RemoteAddr())
	defer b.detach(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return errors.Wrap(err, "device connection lost")
			}
			return nil
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			zlog.Warn().Msgf("device: ignoring malformed message: %v", err)
			continue
		}
		b.dispatch(conn, msg)
	}
}

// dispatch forwards a device event to the engine. Events from a replaced
// browser or for an older load are dropped. The sink is called without
// holding the bridge lock since the engine calls back into the bridge.
func (b *Bridge) dispatch(conn *websocket.Conn, msg Message) {
	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	if msg.Load != b.loads {
		zlog.Debug().Msgf("device: dropping %s for load %d, current load is %d", msg.Event, msg.Load, b.loads)
		b.mu.Unlock()
		return
	}
	sink := b.sink
	switch msg.Event {
	case "timeupdate":
		b.position = msg.CurrentTime
	case "ended":
		b.playing = false
	}
	b.mu.Unlock()

	if sink == nil {
		return
	}
	switch msg.Event {
	case "timeupdate":
		sink.TimeUpdate(msg.Load, msg.CurrentTime, msg.Duration)
	case "ended":
		sink.Ended(msg.Load)
	default:
		zlog.Debug().Msgf("device: unknown event %q", msg.Event)
	}
}

func (b *Bridge) detach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == conn {
		b.conn = nil
		zlog.Info().Msg("device: browser detached")
	}
	conn.Close()
}

// replayLocked must be called with lock held.
func (b *Bridge) replayLocked() {
	if b.loads == 0 {
		return
	}
	src, position := b.src, b.position
	b.sendLocked(Command{Cmd: "load", Src: &src, Load: b.loads})
	if position > 0 {
		b.sendLocked(Command{Cmd: "seek", Position: &position})
	}
	if b.playing {
		b.sendLocked(Command{Cmd: "play"})
	}
}

// sendLocked writes a command to the attached browser, dropping it on failure.
// Must be called with lock held.
func (b *Bridge) sendLocked(cmd Command) {
	if b.conn == nil {
		return
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := b.conn.WriteJSON(cmd); err != nil {
		zlog.Warn().Msgf("device: failed to send %s: %v", cmd.Cmd, err)
		b.conn.Close()
		b.conn = nil
	}
}
