package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ikkim/traceability-backend/pkg/logger"
)

const broadcastBuffer = 1024

// ErrHubClosed is returned by Serve once Run has stopped.
var ErrHubClosed = errors.New("websocket: progress hub closed")

// Message is the frame pushed to watchers of an import.
type Message struct {
	Type     string      `json:"type"`
	ImportID string      `json:"import_id"`
	Data     interface{} `json:"data"`
}

type envelope struct {
	importID string
	payload  []byte
}

// Hub fans import progress out to every connection watching the same
// import id.
type Hub struct {
	// import id -> watching clients
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *envelope
	// closed when Run returns
	done chan struct{}

	allowedOrigins map[string]bool
	allowAll       bool

	mu sync.RWMutex
}

// NewHub builds a hub accepting upgrades from allowedOrigins; "*" allows any.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		rooms:          make(map[string]map[*Client]bool),
		register:       make(chan *Client, 256),
		unregister:     make(chan *Client, 256),
		broadcast:      make(chan *envelope, broadcastBuffer),
		done:           make(chan struct{}),
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			h.allowAll = true
		}
		h.allowedOrigins[origin] = true
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.importID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.importID] = room
			}
			room[client] = true
			watchers := len(room)
			h.mu.Unlock()
			logger.Debug("Progress watcher registered", map[string]interface{}{
				"import_id": client.importID,
				"watchers":  watchers,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[msg.importID] {
				select {
				case client.send <- msg.payload:
				default:
					// Slow reader; drop it instead of stalling the import.
					go h.Unregister(client)
					logger.Warn("Progress watcher send buffer full, disconnecting", map[string]interface{}{
						"import_id": msg.importID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues a progress frame for the watchers of importID. It never
// blocks; frames are dropped when the hub is saturated.
func (h *Hub) Publish(importID string, data interface{}) {
	payload, err := json.Marshal(Message{Type: "import_progress", ImportID: importID, Data: data})
	if err != nil {
		logger.Error("Failed to encode progress frame", err, map[string]interface{}{
			"import_id": importID,
		})
		return
	}

	select {
	case h.broadcast <- &envelope{importID: importID, payload: payload}:
	default:
		logger.Warn("Progress broadcast buffer full, frame dropped", map[string]interface{}{
			"import_id": importID,
		})
	}
}

// Unregister detaches client from the hub. After Run has stopped every
// client is already closed, so it returns immediately.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Watchers returns how many connections follow importID.
func (h *Hub) Watchers(importID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[importID])
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.importID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.importID)
	}
	close(client.send)

	logger.Debug("Progress watcher unregistered", map[string]interface{}{
		"import_id": client.importID,
		"remaining": len(room),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, room := range h.rooms {
		for client := range room {
			close(client.send)
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if origin == "" || h.allowAll {
		return true
	}
	return h.allowedOrigins[origin]
}
