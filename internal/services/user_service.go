package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/intake-api/internal/apperr"
	"github.com/isdelr/intake-api/internal/auth"
	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/rs/zerolog/log"
)

// PasswordResetTTL is how long an emailed reset token stays valid.
const PasswordResetTTL = time.Hour

// TokenManager issues and verifies auth tokens.
type TokenManager interface {
	GenerateJWT(user models.User) (string, error)
	Verify(token string) (auth.Identity, error)
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, input RegisterInput) (models.User, string, error)
	Login(ctx context.Context, email, password string) (models.User, string, error)
	GetUser(ctx context.Context, email string) (models.User, error)
	GetLoggedInUser(ctx context.Context, token string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, token string, input UpdateUserInput) (models.User, error)
	UpdatePassword(ctx context.Context, email, newPassword, resetToken string) (models.User, string, error)
	DeleteUser(ctx context.Context, token, id string) ([]models.User, error)
	SendPasswordResetEmail(ctx context.Context, email string) (models.User, error)
	Authenticate(token string) (auth.Identity, error)
}

// RegisterInput holds the fields of a registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUserInput holds profile changes. Nil fields are left untouched.
type UpdateUserInput struct {
	Email     string
	FirstName *string
	LastName  *string
}

// UserService provides business logic for user management.
type UserService struct {
	users  store.UserRepository
	tokens TokenManager
	mail   *dispatcher
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(users store.UserRepository, tokens TokenManager, sender mailer.Sender) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		mail:   newDispatcher(sender),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user, hashing their password, and issues an auth token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, string, error) {
	email := strings.TrimSpace(input.Email)
	invalid := requireFields("Registration errors", field{"email", email}, field{"password", input.Password})
	if invalid == nil && !strings.Contains(email, "@") {
		invalid = apperr.Invalid("Registration errors").WithField("email", "Email must be a valid email address")
	}
	if invalid != nil {
		return models.User{}, "", invalid
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return models.User{}, "", emailInUse()
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", storeFailure(err, "Failed to look up user", email)
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, "", apperr.Wrap(apperr.StoreFailed, "Failed to hash password", err)
	}

	now := s.now()
	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.User{}, "", emailInUse()
		}
		return models.User{}, "", storeFailure(err, "Failed to register user", email)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// Login verifies a user's credentials and issues an auth token.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", storeFailure(err, "Failed to look up user", email)
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		log.Warn().Str("email", email).Msg("Failed authentication attempt")
		return models.User{}, "", apperr.New(apperr.InvalidCredentials, "Invalid email or password")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// GetUser retrieves a single user by email.
func (s *UserService) GetUser(ctx context.Context, email string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, userNotFound()
	}
	if err != nil {
		return models.User{}, storeFailure(err, "Failed to look up user", email)
	}
	return user, nil
}

// Authenticate verifies token and returns the caller's identity.
func (s *UserService) Authenticate(token string) (auth.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			return auth.Identity{}, apperr.Wrap(apperr.InvalidToken, "Missing user token", err)
		}
		return auth.Identity{}, apperr.Wrap(apperr.InvalidToken, "Invalid user token", err)
	}
	return identity, nil
}

// GetLoggedInUser resolves the user behind token.
func (s *UserService) GetLoggedInUser(ctx context.Context, token string) (models.User, error) {
	identity, err := s.Authenticate(token)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.users.FindByID(ctx, identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, userNotFound()
	}
	if err != nil {
		return models.User{}, storeFailure(err, "Failed to look up user", identity.Email)
	}
	return user, nil
}

// GetAllUsers returns every user, failing with NoUsersFound when there are none.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "Failed to list users", "")
	}
	if len(users) == 0 {
		return nil, apperr.New(apperr.NoUsersFound, "No users found").WithField("user", "No users found")
	}
	return users, nil
}

// UpdateUser changes the profile of the calling user.
func (s *UserService) UpdateUser(ctx context.Context, token string, input UpdateUserInput) (models.User, error) {
	identity, err := s.Authenticate(token)
	if err != nil {
		return models.User{}, err
	}
	if identity.Email != input.Email {
		return models.User{}, apperr.New(apperr.Unauthorized, "You can only update your own profile")
	}

	current, err := s.GetUser(ctx, input.Email)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.users.UpdateProfile(ctx, current.ID, trimmed(input.FirstName), trimmed(input.LastName))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, userNotFound()
		}
		return models.User{}, storeFailure(err, "Failed to update user", input.Email)
	}
	return user, nil
}

// UpdatePassword sets a new password using an emailed reset token and issues a fresh auth token.
func (s *UserService) UpdatePassword(ctx context.Context, email, newPassword, resetToken string) (models.User, string, error) {
	if invalid := requireFields("Password update errors", field{"email", email}, field{"newPassword", newPassword}, field{"token", resetToken}); invalid != nil {
		return models.User{}, "", invalid
	}
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return models.User{}, "", err
	}

	if !s.resetTokenMatches(user, resetToken) {
		return models.User{}, "", apperr.New(apperr.InvalidToken, "Password reset token is invalid or has expired")
	}
	if auth.CheckPassword(user.PasswordHash, newPassword) {
		return models.User{}, "", apperr.New(apperr.MatchingPasswords, "New password must differ from the current one").
			WithField("newPassword", "New password must differ from the current one")
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return models.User{}, "", apperr.Wrap(apperr.StoreFailed, "Failed to hash password", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, user.PasswordResetToken, hashedPassword); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.User{}, "", apperr.New(apperr.InvalidToken, "Password reset token is invalid or has expired")
		}
		return models.User{}, "", storeFailure(err, "Failed to update password", email)
	}
	user.PasswordHash = hashedPassword
	user.PasswordResetToken = ""
	user.PasswordResetExpiresAt = nil

	token, err := s.issueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// DeleteUser removes a user and returns the remaining ones.
func (s *UserService) DeleteUser(ctx context.Context, token, id string) ([]models.User, error) {
	identity, err := s.Authenticate(token)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, userNotFound()
		}
		return nil, storeFailure(err, "Failed to delete user", "")
	}
	log.Info().Str("user_id", id).Str("deleted_by", identity.Email).Msg("User deleted")
	return s.GetAllUsers(ctx)
}

// SendPasswordResetEmail stores a fresh reset token on the user and emails it to them.
func (s *UserService) SendPasswordResetEmail(ctx context.Context, email string) (models.User, error) {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	raw := uuid.New().String()
	expiresAt := s.now().Add(PasswordResetTTL)
	digest := hashResetToken(raw)
	if err := s.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, userNotFound()
		}
		return models.User{}, storeFailure(err, "Failed to store password reset token", email)
	}
	user.PasswordResetToken = digest
	user.PasswordResetExpiresAt = &expiresAt

	msg, err := mailer.PasswordResetMessage(user.Email, raw, expiresAt)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.StoreFailed, "Failed to render password reset email", err)
	}
	s.mail.dispatch(msg, "password reset")
	return user, nil
}

// WaitForNotifications blocks until every dispatched email has finished.
func (s *UserService) WaitForNotifications() {
	s.mail.wait()
}

func (s *UserService) issueToken(user models.User) (string, error) {
	token, err := s.tokens.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		return "", apperr.Wrap(apperr.StoreFailed, "Failed to generate token", err)
	}
	return token, nil
}

func (s *UserService) resetTokenMatches(user models.User, raw string) bool {
	if user.PasswordResetToken == "" || user.PasswordResetExpiresAt == nil {
		return false
	}
	if !s.now().Before(*user.PasswordResetExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(user.PasswordResetToken), []byte(hashResetToken(raw))) == 1
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// hashResetToken keeps only a digest of reset tokens at rest.
func hashResetToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func emailInUse() *apperr.Error {
	return apperr.New(apperr.EmailInUse, "User exists").WithField("email", "User already exists with these credentials")
}

func userNotFound() *apperr.Error {
	return apperr.New(apperr.UserNotFound, "User doesn't exist").WithField("user", "No user found with those credentials")
}
