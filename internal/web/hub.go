package web

import (
	"sync"

	"nmea-ng/internal/nmea"
	"nmea-ng/internal/sink"
)

// Hub fans encoded sentences out to stream clients. It keeps the most
// recent message so a new client gets something immediately.
//
// Publish never blocks: a client whose buffer is full misses the message.
type Hub struct {
	mu       sync.RWMutex
	subs     map[int]chan []byte
	nextID   int
	last     []byte
	dropped  uint64
	messages uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan []byte)}
}

func (h *Hub) Subscribe(buffer int) (int, <-chan []byte) {
	if h == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan []byte, buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	last := h.last
	h.mu.Unlock()
	if last != nil {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	if h == nil {
		return
	}
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(b []byte) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages++
	for _, ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.dropped++
		}
	}
	h.last = b
}

// Handle encodes msg and publishes it. It has the nmea.Subscriber shape.
func (h *Hub) Handle(msg nmea.Message) error {
	b, err := sink.Encode(msg)
	if err != nil {
		return err
	}
	h.Publish(b)
	return nil
}

type HubStats struct {
	Clients  int    `json:"clients"`
	Messages uint64 `json:"messages"`
	Dropped  uint64 `json:"dropped"`
}

func (h *Hub) Stats() HubStats {
	if h == nil {
		return HubStats{}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{Clients: len(h.subs), Messages: h.messages, Dropped: h.dropped}
}
