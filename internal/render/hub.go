// Package render implements the query/render API: a websocket hub that
// broadcasts a compressed per-tick WorldSnapshot to every connected
// spectator, plus the HTTP plumbing that accepts those connections.
package render

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans a single per-tick snapshot out to every subscriber. It carries
// no simulation knowledge of its own; the scheduler loop calls Broadcast
// once per tick with whatever Snapshot BuildSnapshot produced.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan []byte
}

// NewHub creates an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan []byte)}
}

// Register creates a buffered per-connection channel for a new spectator.
func (h *Hub) Register() (string, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan []byte, 8)
	h.subscribers[id] = ch
	return id, ch
}

// Unregister closes and drops a spectator's channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Broadcast sends an already-encoded frame to every spectator, dropping it
// for any subscriber whose channel is currently full rather than blocking
// the simulation loop.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- frame:
		default:
		}
	}
}

// SubscriberCount reports how many spectators are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
