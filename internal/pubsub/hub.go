package pubsub

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/eagraf/habitat-workspaces/internal/observability"
)

const subscriberBuffer = 16

// Hub fans payloads out to the live subscribers of a group. Delivery is at most
// once: a subscriber whose buffer is full misses the payload, and nothing is
// replayed to subscribers that join later.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	groups map[string]map[int]chan []byte
}

var _ Subscriber[StatusEvent] = &Hub{}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[int]chan []byte),
	}
}

// Subscribe joins group. The returned cancel function leaves the group and
// closes the channel.
func (h *Hub) Subscribe(group string) (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan []byte, subscriberBuffer)
	if h.groups[group] == nil {
		h.groups[group] = make(map[int]chan []byte)
	}
	h.groups[group][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.groups[group], id)
			if len(h.groups[group]) == 0 {
				delete(h.groups, group)
			}
			close(ch)
		})
	}
}

// Broadcast sends payload to every subscriber of group and returns how many received it.
func (h *Hub) Broadcast(group string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.groups[group] {
		select {
		case ch <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Subscribers(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// ConsumeEvent broadcasts a status event to the workspace's group.
func (h *Hub) ConsumeEvent(e *StatusEvent) error {
	if e == nil {
		return errors.New("nil status event")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	observability.StatusEventsTotal.WithLabelValues(string(e.Status)).Inc()
	h.Broadcast(e.WorkspaceID, payload)
	return nil
}
