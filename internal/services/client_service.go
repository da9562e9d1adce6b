package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/scheduling"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/rs/zerolog/log"
)

const maxSaveAttempts = 3

// IntakePublisher receives a notice every time intake creates or updates a client.
type IntakePublisher interface {
	PublishIntake(event models.IntakeEvent)
}

// ClientServiceProvider defines the interface for client services.
type ClientServiceProvider interface {
	AddNewClient(ctx context.Context, eventURI, inviteeURI string) (IntakeResult, error)
	GetAllClients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, email string) (models.Client, error)
	EditClient(ctx context.Context, edit ClientEdit) (models.Client, error)
}

// IntakeResult is the outcome of AddNewClient.
type IntakeResult struct {
	Client  models.Client
	Created bool
}

// ClientEdit carries the optional changes of an editClient call. Nil fields are left untouched.
type ClientEdit struct {
	Email                string
	Editor               string
	Status               *string
	OriginalCostEstimate *float64
	UpdatedCostEstimate  *float64
	Project              *ProjectEdit
}

// ProjectEdit carries optional project changes. Hours, notes and dates apply to the current phase.
type ProjectEdit struct {
	Title                *string
	Domain               *string
	ExternalDependencies *[]string
	HoursLogged          *float64
	Notes                *string
	OriginalLaunchDate   *time.Time
	UpdatedLaunchDate    *time.Time
}

// ClientService provides business logic for client intake and management.
type ClientService struct {
	clients   store.ClientRepository
	provider  scheduling.Provider
	mail      *dispatcher
	publisher IntakePublisher
	location  *time.Location
	now       func() time.Time
}

// NewClientService creates a new ClientService. Meeting times in emails are rendered in loc.
func NewClientService(clients store.ClientRepository, provider scheduling.Provider, sender mailer.Sender, publisher IntakePublisher, loc *time.Location) *ClientService {
	if loc == nil {
		loc = time.UTC
	}
	return &ClientService{
		clients:   clients,
		provider:  provider,
		mail:      newDispatcher(sender),
		publisher: publisher,
		location:  loc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddNewClient fetches a booking from the scheduling provider and merges it into the client
// with the invitee's email, creating the client if this is their first meeting.
func (s *ClientService) AddNewClient(ctx context.Context, eventURI, inviteeURI string) (IntakeResult, error) {
	if invalid := requireFields("Missing scheduling references", field{"eventUri", eventURI}, field{"inviteeUri", inviteeURI}); invalid != nil {
		return IntakeResult{}, invalid
	}

	event, invitee, err := s.provider.FetchBooking(ctx, eventURI, inviteeURI)
	var uriErr *scheduling.URIError
	if errors.As(err, &uriErr) {
		log.Warn().Str("field", uriErr.Field).Str("uri", uriErr.URI).Msg("Rejected scheduling reference outside the provider API")
		return IntakeResult{}, apperr.Invalid("Scheduling references must point at the scheduling provider").
			WithField(uriErr.Field, uriErr.Field+" is not a scheduling provider URI")
	}
	if err != nil {
		log.Error().Err(err).Str("event_uri", eventURI).Str("invitee_uri", inviteeURI).Msg("Failed to fetch booking from scheduling provider")
		return IntakeResult{}, apperr.Wrap(apperr.FetchFailed, "Could not fetch meeting details from the scheduling provider", err)
	}

	email := strings.TrimSpace(invitee.Email)
	if email == "" {
		return IntakeResult{}, apperr.Invalid("Scheduling data is incomplete").WithField("email", "Invitee has no email address")
	}
	start, created, invalid := s.bookingTimes(event)
	if invalid != nil {
		return IntakeResult{}, invalid
	}

	meeting := meetingFromBooking(event, invitee, start, created)

	client, err := s.clients.AppendMeeting(ctx, email, meeting)
	switch {
	case err == nil:
		s.publish(models.EventClientUpdated, client)
		return IntakeResult{Client: client}, nil
	case !errors.Is(err, store.ErrNotFound):
		return IntakeResult{}, storeFailure(err, "Failed to add meeting to client", email)
	}

	now := s.now()
	client = models.Client{
		ID:        uuid.New().String(),
		Email:     email,
		FirstName: invitee.FirstName,
		LastName:  invitee.LastName,
		Status:    models.FirstPhase,
		Meetings:  []models.Meeting{meeting},
		Notes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.clients.Create(ctx, &client); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return IntakeResult{}, storeFailure(err, "Failed to create client", email)
		}
		// Another intake for the same email created the client first.
		merged, err := s.clients.AppendMeeting(ctx, email, meeting)
		if err != nil {
			return IntakeResult{}, storeFailure(err, "Failed to add meeting to client", email)
		}
		s.publish(models.EventClientUpdated, merged)
		return IntakeResult{Client: merged}, nil
	}

	s.notifyNewClient(client, meeting)
	s.publish(models.EventClientAdded, client)
	return IntakeResult{Client: client, Created: true}, nil
}

// GetAllClients returns every client record.
func (s *ClientService) GetAllClients(ctx context.Context) ([]models.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "Failed to list clients", "")
	}
	return clients, nil
}

// GetClient returns the client with the given email.
func (s *ClientService) GetClient(ctx context.Context, email string) (models.Client, error) {
	client, err := s.clients.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.Client{}, apperr.New(apperr.ClientNotFound, "No client found with that email").
			WithField("email", "No client found with that email")
	}
	if err != nil {
		return models.Client{}, storeFailure(err, "Failed to load client", email)
	}
	return client, nil
}

// EditClient applies edit to the client, retrying when another writer got there first.
func (s *ClientService) EditClient(ctx context.Context, edit ClientEdit) (models.Client, error) {
	var status models.Phase
	if edit.Status != nil {
		p, err := models.ParsePhase(*edit.Status)
		if err != nil {
			return models.Client{}, apperr.Invalid("Invalid client status").
				WithField("status", fmt.Sprintf("Status must be one of the %d project phases", len(models.Phases)))
		}
		status = p
	}
	if invalid := validateProjectEdit(edit); invalid != nil {
		return models.Client{}, invalid
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		client, err := s.GetClient(ctx, edit.Email)
		if err != nil {
			return models.Client{}, err
		}
		if status != "" {
			client.Status = status
		}
		s.applyProjectEdit(&client, edit)

		err = s.clients.Save(ctx, &client)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return models.Client{}, storeFailure(err, "Failed to save client", edit.Email)
		}
		log.Warn().Str("email", edit.Email).Int("attempt", attempt).Msg("Client modified concurrently, retrying edit")
	}
	return models.Client{}, apperr.Wrap(apperr.StoreFailed, "Client was modified concurrently, try again", store.ErrConflict)
}

// WaitForNotifications blocks until every dispatched notification has finished.
func (s *ClientService) WaitForNotifications() {
	s.mail.wait()
}

func (s *ClientService) applyProjectEdit(client *models.Client, edit ClientEdit) {
	touchesPhase := edit.OriginalCostEstimate != nil || edit.UpdatedCostEstimate != nil
	if p := edit.Project; p != nil {
		touchesPhase = touchesPhase || p.HoursLogged != nil || p.Notes != nil ||
			p.OriginalLaunchDate != nil || p.UpdatedLaunchDate != nil
	}
	if edit.Project == nil && !touchesPhase {
		return
	}
	if client.Project == nil {
		client.Project = &models.Project{ExternalDependencies: []string{}, Phases: []models.ProjectPhase{}}
	}
	project := client.Project

	if p := edit.Project; p != nil {
		if p.Title != nil {
			project.Title = *p.Title
		}
		if p.Domain != nil {
			project.Domain = *p.Domain
		}
		if p.ExternalDependencies != nil {
			project.ExternalDependencies = dedupe(*p.ExternalDependencies)
		}
	}
	if !touchesPhase {
		return
	}

	phase := project.CurrentPhase(client.Status)
	if edit.OriginalCostEstimate != nil {
		phase.OriginalCostEstimate = edit.OriginalCostEstimate
	}
	if edit.UpdatedCostEstimate != nil {
		phase.UpdatedCostEstimate = edit.UpdatedCostEstimate
	}
	if p := edit.Project; p != nil {
		if p.HoursLogged != nil {
			phase.HoursLogged = append(phase.HoursLogged, models.LoggedHours{
				Date:      s.now(),
				Hours:     *p.HoursLogged,
				Developer: edit.Editor,
			})
		}
		if p.Notes != nil && strings.TrimSpace(*p.Notes) != "" {
			phase.Notes = append(phase.Notes, *p.Notes)
		}
		if p.OriginalLaunchDate != nil {
			phase.OriginalLaunchDate = p.OriginalLaunchDate
		}
		if p.UpdatedLaunchDate != nil {
			phase.UpdatedLaunchDate = p.UpdatedLaunchDate
		}
	}
}

func validateProjectEdit(edit ClientEdit) *apperr.Error {
	var invalid *apperr.Error
	add := func(field, msg string) {
		if invalid == nil {
			invalid = apperr.Invalid("Invalid client fields")
		}
		invalid.WithField(field, msg)
	}
	if edit.OriginalCostEstimate != nil && *edit.OriginalCostEstimate < 0 {
		add("originalCostEstimate", "Cost estimate cannot be negative")
	}
	if edit.UpdatedCostEstimate != nil && *edit.UpdatedCostEstimate < 0 {
		add("updatedCostEstimate", "Cost estimate cannot be negative")
	}
	if edit.Project != nil && edit.Project.HoursLogged != nil && *edit.Project.HoursLogged <= 0 {
		add("hoursLogged", "Logged hours must be positive")
	}
	return invalid
}

// notifyNewClient emails the intro-meeting confirmation without blocking the caller.
func (s *ClientService) notifyNewClient(client models.Client, meeting models.Meeting) {
	msg, err := mailer.IntroMeetingMessage(client.Email, mailer.IntroMeeting{
		FirstName: client.FirstName,
		Location:  meeting.Location,
		URL:       meeting.URL,
		DateTime:  mailer.FormatMeetingTime(meeting.ScheduledFor, s.location),
	})
	if err != nil {
		log.Error().Err(err).Str("email", client.Email).Msg("Failed to render intro meeting email")
		return
	}
	s.mail.dispatch(msg, "intro meeting")
}

func (s *ClientService) publish(eventType string, client models.Client) {
	if s.publisher == nil {
		return
	}
	event := models.IntakeEvent{
		Type:         eventType,
		Email:        client.Email,
		FirstName:    client.FirstName,
		LastName:     client.LastName,
		MeetingCount: len(client.Meetings),
		CreatedAt:    s.now(),
	}
	if n := len(client.Meetings); n > 0 {
		event.ScheduledFor = client.Meetings[n-1].ScheduledFor
	}
	s.publisher.PublishIntake(event)
}

// bookingTimes parses the event's start and creation times. A missing creation time
// falls back to now.
func (s *ClientService) bookingTimes(event scheduling.Event) (start, created time.Time, invalid *apperr.Error) {
	fail := func(field, message string) {
		if invalid == nil {
			invalid = apperr.Invalid("Scheduling data is incomplete")
		}
		invalid.WithField(field, message)
	}

	raw := strings.TrimSpace(event.StartTime)
	if raw == "" {
		fail("start_time", "Event has no start time")
	} else if t, err := time.Parse(time.RFC3339Nano, raw); err != nil {
		fail("start_time", "Event start time is not a valid timestamp")
	} else {
		start = t.UTC()
	}

	created = s.now()
	if raw := strings.TrimSpace(event.CreatedAt); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			fail("created_at", "Event creation time is not a valid timestamp")
		} else {
			created = t.UTC()
		}
	}
	return start, created, invalid
}

func meetingFromBooking(event scheduling.Event, invitee scheduling.Invitee, start, created time.Time) models.Meeting {
	prep := make([]models.PrepInfo, 0, len(invitee.QuestionsAndAnswers))
	for _, qa := range invitee.QuestionsAndAnswers {
		prep = append(prep, models.PrepInfo{Question: qa.Question, Answer: qa.Answer})
	}
	return models.Meeting{
		Location:     event.Location.Type,
		URL:          event.Location.JoinURL,
		Created:      created,
		ScheduledFor: start,
		PrepInfo:     prep,
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
