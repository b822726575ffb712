package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// MessageType defines the type of WebSocket message. Values are the event
// names published by the survey service (service.MsgSubmitted and friends).
type MessageType string

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per patient. A patient may be connected
// from several devices at once.
type Hub struct {
	conns map[string]map[*Connection]bool // patientID -> connections

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once

	logger zerolog.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	PatientID string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message to one patient's connections
type BroadcastMessage struct {
	PatientID string
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "ws_hub").Logger(),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for patientID, conns := range h.conns {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.conns, patientID)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.PatientID] == nil {
				h.conns[conn.PatientID] = make(map[*Connection]bool)
			}
			h.conns[conn.PatientID][conn] = true
			h.mu.Unlock()
			h.logger.Debug().Str("patientId", conn.PatientID).Msg("patient connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.conns[conn.PatientID]; ok && conns[conn] {
				delete(conns, conn)
				close(conn.Send)
				if len(conns) == 0 {
					delete(h.conns, conn.PatientID)
				}
				h.logger.Debug().Str("patientId", conn.PatientID).Msg("patient disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to encode message")
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[msg.PatientID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// ConnectionCount returns the number of live connections of a patient
func (h *Hub) ConnectionCount(patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[patientID])
}

// SendToPatient sends a message to every connection of a patient (implements service.Broadcaster)
func (h *Hub) SendToPatient(patientID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("failed to encode payload")
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{
		PatientID: patientID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}:
	case <-h.done:
	}
}

// Close stops the hub and closes all connections
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
