package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/intake-api/internal/database"
	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/scheduling"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/stretchr/testify/require"
)

type repos struct {
	clients *store.SQLiteClientRepository
	users   *store.SQLiteUserRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return repos{
		clients: store.NewSQLiteClientRepository(db),
		users:   store.NewSQLiteUserRepository(db),
	}
}

// recordingSender captures every message instead of delivering it.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.IntakeEvent
}

func (p *recordingPublisher) PublishIntake(e models.IntakeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) all() []models.IntakeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.IntakeEvent(nil), p.events...)
}

// fakeProvider serves bookings keyed by invitee URI.
type fakeProvider struct {
	mu       sync.Mutex
	bookings map[string]booking
	err      error
	calls    int
}

type booking struct {
	event   scheduling.Event
	invitee scheduling.Invitee
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{bookings: map[string]booking{}}
}

func (p *fakeProvider) add(inviteeURI, email, location string, start time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookings[inviteeURI] = booking{
		event: scheduling.Event{
			StartTime: start.Format(time.RFC3339),
			CreatedAt: start.Add(-72 * time.Hour).Format(time.RFC3339),
			Location:  scheduling.Location{Type: location, JoinURL: "https://meet.example/" + inviteeURI},
		},
		invitee: scheduling.Invitee{
			Email:     email,
			FirstName: "Ada",
			LastName:  "Lovelace",
			QuestionsAndAnswers: []scheduling.QuestionAndAnswer{
				{Question: "What are you building?", Answer: "A portal"},
			},
		},
	}
}

func (p *fakeProvider) FetchBooking(_ context.Context, _, inviteeURI string) (scheduling.Event, scheduling.Invitee, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return scheduling.Event{}, scheduling.Invitee{}, p.err
	}
	b, ok := p.bookings[inviteeURI]
	if !ok {
		return scheduling.Event{}, scheduling.Invitee{}, scheduling.ErrUnauthorized
	}
	return b.event, b.invitee, nil
}
