package websocket

import (
	"encoding/json"
	"time"
)

// Actions sent by the server besides intake events.
const (
	ActionError = "error"
	ActionPong  = "pong"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

type intakePayload struct {
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	MeetingCount int       `json:"meetingCount"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// NewErrorMessage encodes an error message for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": text}})
	return b
}

// NewPongMessage encodes the reply to a client ping.
func NewPongMessage() []byte {
	b, _ := json.Marshal(Message{Action: ActionPong})
	return b
}
