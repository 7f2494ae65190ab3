package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a new message. Content and direction are immutable after
// this point; only the delivery/read timestamps may change later.
func (r *MessageRepository) Create(m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO messages (id, conversation_id, direction, content, ai_generated, read, delivered_at, read_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Direction, m.Content, m.AIGenerated, m.Read, m.DeliveredAt, m.ReadAt, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's messages oldest first
func (r *MessageRepository) ListByConversation(conversationID string) ([]models.Message, error) {
	rows, err := r.db.Query(`
		SELECT id, conversation_id, direction, content, ai_generated, read, delivered_at, read_at, timestamp
		FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var deliveredAt, readAt sql.NullTime
		err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.AIGenerated, &m.Read,
			&deliveredAt, &readAt, &m.Timestamp)
		if err != nil {
			return nil, err
		}
		if deliveredAt.Valid {
			m.DeliveredAt = &deliveredAt.Time
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkDelivered stamps the delivery timestamp
func (r *MessageRepository) MarkDelivered(id string, at time.Time) error {
	_, err := r.db.Exec("UPDATE messages SET delivered_at = ? WHERE id = ?", at, id)
	return err
}

// MarkRead stamps the read timestamp
func (r *MessageRepository) MarkRead(id string, at time.Time) error {
	_, err := r.db.Exec("UPDATE messages SET read = 1, read_at = ? WHERE id = ?", at, id)
	return err
}
