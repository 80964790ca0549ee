package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a best-effort push payload for SSE clients. Fields are omitted
// when empty so ticket status events and user notifications share one shape.
type Event struct {
	Type      string `json:"type"`
	ID        uint   `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	OrderCode string `json:"orderId,omitempty"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	URL       string `json:"url,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Now stamps the event with the current time in RFC3339.
func (e Event) Now() Event {
	e.Timestamp = time.Now().Format(time.RFC3339)
	return e
}

// Hub is the in-process fan-out registry for live ticket and user streams.
// It is owned by the composition root and injected where needed; it has no
// persistence and no delivery guarantee. A subscriber that is offline simply
// misses events and re-fetches state on reconnect.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[uuid.UUID]chan Event)}
}

func ticketTopic(ticketID uint) string { return fmt.Sprintf("ticket:%d", ticketID) }
func userTopic(userID uint) string     { return fmt.Sprintf("user:%d", userID) }

// SubscribeTicket registers a listener for one ticket's events.
func (h *Hub) SubscribeTicket(ticketID uint) (uuid.UUID, <-chan Event) {
	return h.subscribe(ticketTopic(ticketID))
}

// SubscribeUser registers a listener for one user's notifications.
func (h *Hub) SubscribeUser(userID uint) (uuid.UUID, <-chan Event) {
	return h.subscribe(userTopic(userID))
}

// UnsubscribeTicket removes a ticket listener and closes its channel.
func (h *Hub) UnsubscribeTicket(ticketID uint, id uuid.UUID) {
	h.unsubscribe(ticketTopic(ticketID), id)
}

// UnsubscribeUser removes a user listener and closes its channel.
func (h *Hub) UnsubscribeUser(userID uint, id uuid.UUID) {
	h.unsubscribe(userTopic(userID), id)
}

// PublishTicket broadcasts to everyone watching the ticket.
func (h *Hub) PublishTicket(ticketID uint, e Event) {
	h.publish(ticketTopic(ticketID), e)
}

// PublishUser broadcasts to every open session of the user.
func (h *Hub) PublishUser(userID uint, e Event) {
	h.publish(userTopic(userID), e)
}

func (h *Hub) subscribe(topic string) (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, 8)

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[uuid.UUID]chan Event)
		h.topics[topic] = set
	}
	set[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(topic string, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		return
	}
	if ch, ok := set[id]; ok {
		delete(set, id)
		close(ch)
	}
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

// publish never blocks; a slow subscriber drops events rather than stalling
// the writer.
func (h *Hub) publish(topic string, e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.topics[topic] {
		select {
		case ch <- e:
		default:
		}
	}
}
