// Package store persists clients and users. Each repository has a MongoDB implementation
// for production and an SQLite implementation for local development and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/intake-api/internal/models"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates the unique email index.
	ErrDuplicate = errors.New("store: duplicate email")
	// ErrConflict is returned when a versioned save lost a race with another writer.
	ErrConflict = errors.New("store: version conflict")
)

// ClientRepository is the client record store.
type ClientRepository interface {
	FindByEmail(ctx context.Context, email string) (models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
	// Create inserts a new client and fails with ErrDuplicate if the email is taken.
	Create(ctx context.Context, client *models.Client) error
	// AppendMeeting atomically pushes a meeting onto the client with the given email
	// and returns the updated record, or ErrNotFound if there is no such client.
	AppendMeeting(ctx context.Context, email string, meeting models.Meeting) (models.Client, error)
	// Save replaces the client if its version is unchanged since it was read.
	// On success client.Version is incremented; a lost race yields ErrConflict.
	Save(ctx context.Context, client *models.Client) error
}

// UserRepository is the user record store.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	// UpdateProfile sets the non-nil name fields and returns the stored user.
	UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (models.User, error)
	// SetResetToken stores a reset token digest and its expiry.
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	// ResetPassword stores a new password hash and clears the reset token, provided the
	// stored token digest still equals digest. Otherwise it yields ErrConflict.
	ResetPassword(ctx context.Context, id, digest, passwordHash string) error
	Delete(ctx context.Context, id string) error
	// ClearExpiredResetTokens drops password reset tokens that expired before now.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// normalizeClient replaces nil slices so that stored documents always carry arrays.
func normalizeClient(c *models.Client) {
	if c.Meetings == nil {
		c.Meetings = []models.Meeting{}
	}
	if c.Notes == nil {
		c.Notes = []string{}
	}
	for i := range c.Meetings {
		normalizeMeeting(&c.Meetings[i])
	}
}

func normalizeMeeting(m *models.Meeting) {
	if m.PrepInfo == nil {
		m.PrepInfo = []models.PrepInfo{}
	}
}
