package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/intake-api/internal/models"
)

const clientColumns = `id, email, first_name, last_name, status, version, meetings_json, project_json, notes_json, created_at, updated_at`

// SQLiteClientRepository stores clients in SQLite with nested fields kept as JSON text.
type SQLiteClientRepository struct {
	db *sql.DB
}

// NewSQLiteClientRepository creates a client repository on db. The schema must already be migrated.
func NewSQLiteClientRepository(db *sql.DB) *SQLiteClientRepository {
	return &SQLiteClientRepository{db: db}
}

// clientRow holds the JSON columns of a client between the database and the model.
type clientRow struct {
	MeetingsJSON string
	ProjectJSON  sql.NullString
	NotesJSON    string
}

func prepareClientForSave(c *models.Client) (clientRow, error) {
	normalizeClient(c)
	var row clientRow

	meetings, err := json.Marshal(c.Meetings)
	if err != nil {
		return row, err
	}
	row.MeetingsJSON = string(meetings)

	notes, err := json.Marshal(c.Notes)
	if err != nil {
		return row, err
	}
	row.NotesJSON = string(notes)

	if c.Project != nil {
		project, err := json.Marshal(c.Project)
		if err != nil {
			return row, err
		}
		row.ProjectJSON = sql.NullString{String: string(project), Valid: true}
	}
	return row, nil
}

func (r *SQLiteClientRepository) scanClient(scanner interface{ Scan(...any) error }) (models.Client, error) {
	var (
		c                    models.Client
		row                  clientRow
		status               string
		createdAt, updatedAt int64
	)
	err := scanner.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &status, &c.Version,
		&row.MeetingsJSON, &row.ProjectJSON, &row.NotesJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Client{}, ErrNotFound
		}
		return models.Client{}, err
	}
	c.Status = models.Phase(status)
	c.CreatedAt = fromUnixNano(createdAt)
	c.UpdatedAt = fromUnixNano(updatedAt)

	if err := json.Unmarshal([]byte(row.MeetingsJSON), &c.Meetings); err != nil {
		return models.Client{}, fmt.Errorf("decode meetings of %s: %w", c.Email, err)
	}
	if err := json.Unmarshal([]byte(row.NotesJSON), &c.Notes); err != nil {
		return models.Client{}, fmt.Errorf("decode notes of %s: %w", c.Email, err)
	}
	if row.ProjectJSON.Valid {
		c.Project = &models.Project{}
		if err := json.Unmarshal([]byte(row.ProjectJSON.String), c.Project); err != nil {
			return models.Client{}, fmt.Errorf("decode project of %s: %w", c.Email, err)
		}
	}
	return c, nil
}

// FindByEmail looks up a client by exact email.
func (r *SQLiteClientRepository) FindByEmail(ctx context.Context, email string) (models.Client, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE email = ?", email)
	return r.scanClient(row)
}

// List returns every client ordered by creation time.
func (r *SQLiteClientRepository) List(ctx context.Context) ([]models.Client, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY created_at, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Create inserts a new client.
func (r *SQLiteClientRepository) Create(ctx context.Context, client *models.Client) error {
	row, err := prepareClientForSave(client)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.Email, client.FirstName, client.LastName, string(client.Status), client.Version,
		row.MeetingsJSON, row.ProjectJSON, row.NotesJSON, client.CreatedAt.UnixNano(), client.UpdatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// AppendMeeting appends the meeting with a single UPDATE so concurrent intake never loses a meeting.
func (r *SQLiteClientRepository) AppendMeeting(ctx context.Context, email string, meeting models.Meeting) (models.Client, error) {
	normalizeMeeting(&meeting)
	payload, err := json.Marshal(meeting)
	if err != nil {
		return models.Client{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE clients
		SET meetings_json = json_insert(meetings_json, '$[#]', json(?)),
		    version = version + 1,
		    updated_at = ?
		WHERE email = ?
		RETURNING `+clientColumns,
		string(payload), time.Now().UTC().UnixNano(), email,
	)
	return r.scanClient(row)
}

// Save replaces the client if its version is unchanged.
func (r *SQLiteClientRepository) Save(ctx context.Context, client *models.Client) error {
	row, err := prepareClientForSave(client)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET first_name = ?, last_name = ?, status = ?, meetings_json = ?, project_json = ?, notes_json = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		client.FirstName, client.LastName, string(client.Status), row.MeetingsJSON, row.ProjectJSON, row.NotesJSON,
		now.UnixNano(), client.ID, client.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM clients WHERE id = ?)", client.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	client.Version++
	client.UpdatedAt = now
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
