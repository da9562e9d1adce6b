package models

import "time"

// IntakeEvent is pushed to dashboard subscribers whenever client intake changes a record.
type IntakeEvent struct {
	Type         string    `json:"type"` // "client.added" or "client.updated"
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	MeetingCount int       `json:"meetingCount"`
	ScheduledFor time.Time `json:"scheduledFor"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	EventClientAdded   = "client.added"
	EventClientUpdated = "client.updated"
)
