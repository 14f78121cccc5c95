// Package broadcast fans alerts out from the sampling loop to watchers.
//
// Publish never blocks: a watcher whose buffer is full loses the alert and
// the drop is counted, so a slow gRPC client cannot stall the tick loop.
package broadcast

import (
	"sync"

	"github.com/oshokin/posture-alarm/internal/domain/posture"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Hub distributes alerts to subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

// Subscription is a single watcher registration.
type Subscription struct {
	id      uint64
	ch      chan *posture.Alert
	hub     *Hub
	dropped uint64
	once    sync.Once
}

// New creates a hub with the given per-subscriber buffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a watcher. The returned channel is closed by
// Unsubscribe or by Close of the hub.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:  h.nextID,
		ch:  make(chan *posture.Alert, h.buffer),
		hub: h,
	}

	if h.closed {
		sub.once.Do(func() { close(sub.ch) })

		return sub
	}

	h.subs[sub.id] = sub

	return sub
}

// Publish delivers a copy of the alert to every subscriber without blocking.
func (h *Hub) Publish(alert *posture.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for _, sub := range h.subs {
		select {
		case sub.ch <- alert.Clone():
		default:
			sub.dropped++
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Close unsubscribes everyone and rejects future publications.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// C returns the alert channel.
func (s *Subscription) C() <-chan *posture.Alert {
	return s.ch
}

// Dropped returns how many alerts were lost because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()

	return s.dropped
}

// Unsubscribe removes the watcher and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	delete(s.hub.subs, s.id)
	s.once.Do(func() { close(s.ch) })
}
