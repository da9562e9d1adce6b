package websocket

import (
	"encoding/json"
	"sync"

	"github.com/isdelr/intake-api/internal/models"
	"github.com/rs/zerolog/log"
)

const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for every connected client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Replies addressed to a single client.
	direct chan directMessage

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, broadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		direct:     make(chan directMessage),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
		case d := <-h.direct:
			if h.clients[d.client] {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		case <-h.done:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		}
	}
}

type directMessage struct {
	client  *Client
	message []byte
}

// SendTo queues message for c alone. It is dropped if c is backed up or gone.
func (h *Hub) SendTo(c *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: c, message: message}:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Attach registers c. It reports false if the hub has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters c. It is a no-op once the hub has stopped.
func (h *Hub) Detach(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// PublishIntake broadcasts an intake event to connected dashboards. It never blocks:
// when the broadcast queue is full the event is dropped.
func (h *Hub) PublishIntake(event models.IntakeEvent) {
	message, err := json.Marshal(Message{Action: event.Type, Payload: intakePayload{
		Email:        event.Email,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		MeetingCount: event.MeetingCount,
		ScheduledFor: event.ScheduledFor,
	}})
	if err != nil {
		log.Error().Err(err).Str("email", event.Email).Msg("Failed to encode intake event")
		return
	}
	select {
	case h.Broadcast <- message:
	default:
		log.Warn().Str("action", event.Type).Str("email", event.Email).Msg("Broadcast queue full, dropping intake event")
	}
}
