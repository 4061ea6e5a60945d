package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"msgboard/internal/model"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it
const subscriberBuffer = 32

// sseRetryMillis is advertised to SSE clients as their reconnection delay
const sseRetryMillis = 3000

// Hub fans broadcast events out to every push subscriber
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan model.StreamEvent
	log         *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{subscribers: make(map[uuid.UUID]chan model.StreamEvent), log: log}
}

func (h *Hub) Subscribe() (uuid.UUID, <-chan model.StreamEvent) {
	id := uuid.New()
	ch := make(chan model.StreamEvent, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	total := len(h.subscribers)
	h.mu.Unlock()

	h.log.Info("New push subscriber", "id", id, "total", total)
	return id, ch
}

func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	_, ok := h.subscribers[id]
	delete(h.subscribers, id)
	total := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		h.log.Info("Push subscriber disconnected", "id", id, "total", total)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (h *Hub) Publish(event model.StreamEvent) {
	// 送信中にロックを保持しないようスナップショットを取る
	h.mu.RLock()
	targets := lo.Entries(h.subscribers)
	h.mu.RUnlock()

	for _, t := range targets {
		select {
		case t.Value <- event:
		default:
			h.log.Warn("Push subscriber lagging, event dropped", "id", t.Key, "type", event.Type)
		}
	}
}

// HandleBroadcast forwards broadcast events to the hub
func (h *Handler) HandleBroadcast() {
	for event := range h.Broadcast {
		h.Hub.Publish(event)
		h.log.Debug("📢 Broadcast event", "type", event.Type, "id", event.ID, "subscribers", h.Hub.Count())
	}
}

// HandleEvents handles GET /events/ as a text/event-stream
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	id, events := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", sseRetryMillis)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if ev.ID != "" {
				fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", ev.Type, ev.ID, ev.Data)
			} else {
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			}
			flusher.Flush()
		}
	}
}
