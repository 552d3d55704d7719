// Package realtime turns upstream "reports changed" signals into list
// re-queries for every open view.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Event is a change signal. Consumers treat it as "state may have changed"
// and never apply it as a diff.
type Event struct {
	Op       string    `json:"op"`
	ReportID string    `json:"report_id,omitempty"`
	At       time.Time `json:"at"`
}

// Marshal encodes the event for a relay payload. Encoding fails only for a
// timestamp outside years 0-9999; the fallback is still a change signal.
func (e Event) Marshal() string {
	b, err := json.Marshal(e)
	if err != nil {
		return `{"op":"` + OpUpdate + `"}`
	}
	return string(b)
}

// ParseEvent decodes a relayed payload. Unparseable payloads still count as
// a change.
func ParseEvent(payload string) Event {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil || e.Op == "" {
		return Event{Op: OpUpdate, At: time.Now().UTC()}
	}
	return e
}

// Publisher announces that the report collection changed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Feed hands out per-subscriber event channels.
type Feed interface {
	Subscribe() (<-chan Event, func())
}

// Hub fans events out to in-process subscribers. It is both the Feed the
// bridge reads from and, in single-instance mode, the Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]chan Event
	next    uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]chan Event)}
}

// Subscribe registers a client. The returned func unregisters it and is
// safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	ch := make(chan Event, 16)
	h.clients[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, id)
			h.mu.Unlock()
		})
	}
}

// Broadcast never blocks: a client whose buffer is full already has a
// pending signal, so dropping is harmless.
func (h *Hub) Broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Broadcast(e)
	return nil
}

// Clients returns the number of registered subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
