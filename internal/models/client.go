package models

import "time"

// Client is a business customer tracked through the project lifecycle. Email is the dedupe key.
type Client struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	FirstName string    `bson:"firstName" json:"firstName"`
	LastName  string    `bson:"lastName" json:"lastName"`
	Status    Phase     `bson:"status" json:"status"`
	Meetings  []Meeting `bson:"meetings" json:"meetings"`
	Project   *Project  `bson:"project,omitempty" json:"project,omitempty"`
	Notes     []string  `bson:"notes" json:"notes"`
	Version   int64     `bson:"version" json:"-"` // bumped on every write
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Meeting is a scheduled engagement sourced from the scheduling provider.
type Meeting struct {
	Location     string     `bson:"location" json:"location"`
	URL          string     `bson:"url" json:"url"`
	Created      time.Time  `bson:"created" json:"created"`
	ScheduledFor time.Time  `bson:"scheduledFor" json:"scheduledFor"`
	PrepInfo     []PrepInfo `bson:"prepInfo" json:"prepInfo"`
	Notes        []string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// PrepInfo is one question/answer pair the invitee filled in while booking.
type PrepInfo struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// Project holds the delivery plan attached to a client.
type Project struct {
	Title                string         `bson:"title" json:"title"`
	Domain               string         `bson:"domain" json:"domain"`
	ExternalDependencies []string       `bson:"externalDependencies" json:"externalDependencies"`
	Phases               []ProjectPhase `bson:"phases" json:"phases"`
}

// ProjectPhase tracks estimates, dates and logged work for one stretch of a project.
type ProjectPhase struct {
	HoursLogged          []LoggedHours `bson:"hoursLogged" json:"hoursLogged"`
	OriginalCostEstimate *float64      `bson:"originalCostEstimate,omitempty" json:"originalCostEstimate,omitempty"`
	UpdatedCostEstimate  *float64      `bson:"updatedCostEstimate,omitempty" json:"updatedCostEstimate,omitempty"`
	OriginalLaunchDate   *time.Time    `bson:"originalLaunchDate,omitempty" json:"originalLaunchDate,omitempty"`
	UpdatedLaunchDate    *time.Time    `bson:"updatedLaunchDate,omitempty" json:"updatedLaunchDate,omitempty"`
	Status               string        `bson:"status" json:"status"`
	Notes                []string      `bson:"notes" json:"notes"`
	AmountPaid           float64       `bson:"amountPaid" json:"amountPaid"`
}

// LoggedHours is a single time entry against a project phase.
type LoggedHours struct {
	Date      time.Time `bson:"date" json:"date"`
	Hours     float64   `bson:"hours" json:"hours"`
	Developer string    `bson:"developer" json:"developer"`
}

// CurrentPhase returns the last project phase, appending an empty one first if the project has none.
func (p *Project) CurrentPhase(status Phase) *ProjectPhase {
	if len(p.Phases) == 0 {
		p.Phases = append(p.Phases, ProjectPhase{Status: string(status)})
	}
	return &p.Phases[len(p.Phases)-1]
}
