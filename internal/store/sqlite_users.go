package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/isdelr/intake-api/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, reset_token, reset_expires_at, created_at, updated_at`

// SQLiteUserRepository stores users in SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a user repository on db. The schema must already be migrated.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var (
		u                    models.User
		resetToken           sql.NullString
		resetExpiresAt       sql.NullInt64
		createdAt, updatedAt int64
	)
	err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&resetToken, &resetExpiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	u.PasswordResetToken = resetToken.String
	if resetExpiresAt.Valid {
		t := fromUnixNano(resetExpiresAt.Int64)
		u.PasswordResetExpiresAt = &t
	}
	u.CreatedAt = fromUnixNano(createdAt)
	u.UpdatedAt = fromUnixNano(updatedAt)
	return u, nil
}

func resetColumns(u *models.User) (sql.NullString, sql.NullInt64) {
	var token sql.NullString
	var expires sql.NullInt64
	if u.PasswordResetToken != "" {
		token = sql.NullString{String: u.PasswordResetToken, Valid: true}
	}
	if u.PasswordResetExpiresAt != nil {
		expires = sql.NullInt64{Int64: u.PasswordResetExpiresAt.UnixNano(), Valid: true}
	}
	return token, expires
}

// FindByEmail looks up a user by exact email.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// FindByID looks up a user by id.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// List returns every user ordered by creation time.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new user.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	token, expires := resetColumns(user)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		token, expires, user.CreatedAt.UnixNano(), user.UpdatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProfile sets the non-nil name fields in a single statement.
func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET first_name = COALESCE(?, first_name), last_name = COALESCE(?, last_name), updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		optionalString(firstName), optionalString(lastName), time.Now().UTC().UnixNano(), id,
	))
}

// SetResetToken stores a reset token digest and its expiry.
func (r *SQLiteUserRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET reset_token = ?, reset_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		digest, expiresAt.UnixNano(), time.Now().UTC().UnixNano(), id,
	)
	return requireRow(res, err, ErrNotFound)
}

// ResetPassword swaps the password hash while the reset token digest is unchanged.
func (r *SQLiteUserRepository) ResetPassword(ctx context.Context, id, digest, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL, updated_at = ?
		WHERE id = ? AND reset_token = ?`,
		passwordHash, time.Now().UTC().UnixNano(), id, digest,
	)
	return requireRow(res, err, ErrConflict)
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// requireRow turns an update that touched no rows into missing.
func requireRow(res sql.Result, err error, missing error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

// Delete removes the user with the given id.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return requireRow(res, err, ErrNotFound)
}

// ClearExpiredResetTokens nulls out reset tokens that expired before now.
func (r *SQLiteUserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET reset_token = NULL, reset_expires_at = NULL
		WHERE reset_expires_at IS NOT NULL AND reset_expires_at < ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
