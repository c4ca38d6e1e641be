package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jfplayer/internal/app/playback"
)

type fakeStream struct {
	mu    sync.Mutex
	got   []*Notification
	err   error
	delay time.Duration
}

func (s *fakeStream) Send(n *Notification) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *fakeStream) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func event(version uint64, typ playback.EventType) playback.Event {
	return playback.Event{Type: typ, Snapshot: playback.Snapshot{Version: version, Index: -1}}
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a, b := &fakeStream{}, &fakeStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.PlaybackChanged(event(1, playback.EventQueueChanged))
	m.PlaybackChanged(event(2, playback.EventStateChanged))

	for _, s := range []*fakeStream{a, b} {
		got := s.received()
		require.Len(t, got, 2)
		assert.Equal(t, playback.EventQueueChanged, got[0].Type)
		assert.Equal(t, playback.EventStateChanged, got[1].Type)
	}
}

func TestManager_SequenceNumbersIncrease(t *testing.T) {
	m := NewManager()
	s := &fakeStream{}
	m.Subscribe(s)

	for v := uint64(1); v <= 3; v++ {
		m.PlaybackChanged(event(v, playback.EventProgress))
	}

	got := s.received()
	require.Len(t, got, 3)
	assert.Less(t, got[0].SequenceNo, got[1].SequenceNo)
	assert.Less(t, got[1].SequenceNo, got[2].SequenceNo)
}

func TestManager_DropsStaleVersions(t *testing.T) {
	m := NewManager()
	s := &fakeStream{}
	m.Subscribe(s)

	m.PlaybackChanged(event(5, playback.EventProgress))
	m.PlaybackChanged(event(4, playback.EventProgress))
	m.PlaybackChanged(event(5, playback.EventProgress))

	assert.Len(t, s.received(), 1)
	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Version)
}

func TestManager_SubscribeReceivesLatest(t *testing.T) {
	m := NewManager()
	_, ok := m.Latest()
	assert.False(t, ok)

	early := &fakeStream{}
	m.Subscribe(early)
	assert.Empty(t, early.received())

	m.PlaybackChanged(event(1, playback.EventQueueChanged))

	late := &fakeStream{}
	m.Subscribe(late)
	got := late.received()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].State.Version)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	s := &fakeStream{}
	id := m.Subscribe(s)
	m.Unsubscribe(id)

	m.PlaybackChanged(event(1, playback.EventCleared))
	assert.Empty(t, s.received())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_SlowAndFailingSubscribers(t *testing.T) {
	m := NewManager()
	slow := &fakeStream{delay: 2 * time.Second}
	failing := &fakeStream{err: errors.New("closed")}
	ok := &fakeStream{}
	m.Subscribe(slow)
	m.Subscribe(failing)
	m.Subscribe(ok)

	start := time.Now()
	m.PlaybackChanged(event(1, playback.EventProgress))
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
	assert.Len(t, ok.received(), 1)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&fakeStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}
