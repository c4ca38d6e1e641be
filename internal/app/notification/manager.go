// Package notification provides the notification manager for broadcasting player state.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jfplayer/internal/app/playback"
)

// sendTimeout bounds how long one slow subscriber can hold up a broadcast.
const sendTimeout = 500 * time.Millisecond

// Notification is one state update as seen by subscribers.
type Notification struct {
	SequenceNo uint64             `json:"seq"`
	Type       playback.EventType `json:"type"`
	State      playback.Snapshot  `json:"state"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
// It implements playback.Observer.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex

	// publishMu keeps broadcasts in engine version order.
	publishMu sync.Mutex
	latest    *playback.Event
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// The subscriber first receives the latest known state, if any.
func (m *Manager) Subscribe(stream Stream) string {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	id := uuid.New().String()
	m.mu.Lock()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	m.mu.Unlock()

	if m.latest != nil {
		n := m.newNotification(*m.latest)
		if err := stream.Send(n); err != nil {
			zlog.Debug().Msgf("notification: initial send failed: subscription=%s err=%v", id, err)
		}
	}
	return id
}

// nextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// PlaybackChanged broadcasts an engine event. Events older than the last one
// broadcast are dropped.
func (m *Manager) PlaybackChanged(ev playback.Event) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if m.latest != nil && ev.Snapshot.Version <= m.latest.Snapshot.Version {
		return
	}
	m.latest = &ev
	m.broadcast(m.newNotification(ev))
}

// Latest returns the last broadcast state.
func (m *Manager) Latest() (playback.Snapshot, bool) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	if m.latest == nil {
		return playback.Snapshot{}, false
	}
	return m.latest.Snapshot, true
}

func (m *Manager) newNotification(ev playback.Event) *Notification {
	return &Notification{
		SequenceNo: m.nextSequenceNo(),
		Type:       ev.Type,
		State:      ev.Snapshot,
	}
}

// broadcast sends a notification to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) broadcast(notification *Notification) {
	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	// Send to each subscriber in parallel with timeout
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: subscription=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	// Wait for all sends to complete or timeout
	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
