package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lumacart/chatwidget/internal/domain"
)

// SessionRecord is the stored form of a conversation session
type SessionRecord struct {
	ID        string
	UserID    string
	UserName  string
	Context   domain.SessionContext
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRepository handles session persistence
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(rec *SessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	contextJSON, _ := json.Marshal(rec.Context)

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, user_id, user_name, context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.UserName, string(contextJSON), rec.CreatedAt, rec.UpdatedAt)

	return err
}

// Get retrieves a session by ID. Returns nil when not found.
func (r *SessionRepository) Get(id string) (*SessionRecord, error) {
	rec := &SessionRecord{}
	var userID, userName, contextJSON sql.NullString

	err := r.db.QueryRow(`
		SELECT id, user_id, user_name, context, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&rec.ID, &userID, &userName, &contextJSON, &rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		rec.UserID = userID.String
	}
	if userName.Valid {
		rec.UserName = userName.String
	}
	if contextJSON.Valid && contextJSON.String != "" {
		json.Unmarshal([]byte(contextJSON.String), &rec.Context)
	}

	return rec, nil
}

// Update persists identity binding and context changes
func (r *SessionRepository) Update(rec *SessionRecord) error {
	rec.UpdatedAt = time.Now()
	contextJSON, _ := json.Marshal(rec.Context)

	_, err := r.db.Exec(`
		UPDATE sessions SET user_id = ?, user_name = ?, context = ?, updated_at = ?
		WHERE id = ?
	`, rec.UserID, rec.UserName, string(contextJSON), rec.UpdatedAt, rec.ID)
	return err
}

// Delete removes a session and its messages
func (r *SessionRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// List returns all sessions ordered by last activity
func (r *SessionRepository) List() ([]*SessionRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, user_name, context, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec := &SessionRecord{}
		var userID, userName, contextJSON sql.NullString

		if err := rows.Scan(&rec.ID, &userID, &userName, &contextJSON,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}

		if userID.Valid {
			rec.UserID = userID.String
		}
		if userName.Valid {
			rec.UserName = userName.String
		}
		if contextJSON.Valid && contextJSON.String != "" {
			json.Unmarshal([]byte(contextJSON.String), &rec.Context)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CreateMessage appends a message to a session's history
func (r *SessionRepository) CreateMessage(sessionID string, message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	var payloadJSON string
	if !message.Payload.IsZero() {
		raw, err := json.Marshal(message.Payload)
		if err != nil {
			return err
		}
		payloadJSON = string(raw)
	}

	_, err := r.db.Exec(`
		INSERT INTO messages (id, session_id, sender, content, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, message.ID, sessionID, string(message.Sender), message.Message,
		payloadJSON, message.Timestamp)

	return err
}

// GetMessages retrieves a session's full ordered history
func (r *SessionRepository) GetMessages(sessionID string) ([]domain.Message, error) {
	rows, err := r.db.Query(`
		SELECT id, sender, content, payload, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var message domain.Message
		var sender string
		var payloadJSON sql.NullString

		if err := rows.Scan(&message.ID, &sender, &message.Message,
			&payloadJSON, &message.Timestamp); err != nil {
			return nil, err
		}
		message.Sender = domain.Sender(sender)

		if payloadJSON.Valid && payloadJSON.String != "" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &message.Payload); err != nil {
				return nil, err
			}
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// CountMessages returns the total number of stored messages
func (r *SessionRepository) CountMessages() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
