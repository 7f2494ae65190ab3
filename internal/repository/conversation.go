package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(c *models.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = models.ConversationStatusActive
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	var agentID any
	if c.AgentID != "" {
		agentID = c.AgentID
	}

	_, err := r.db.Exec(`
		INSERT INTO conversations (id, lead_id, agent_id, channel, status, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		c.ID, c.LeadID, agentID, c.Channel, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

const conversationColumns = `id, lead_id, COALESCE(agent_id, ''), channel, status, message_count, last_message_at, created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (*models.Conversation, error) {
	c := &models.Conversation{}
	var lastMessageAt sql.NullTime
	err := row.Scan(&c.ID, &c.LeadID, &c.AgentID, &c.Channel, &c.Status, &c.MessageCount,
		&lastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastMessageAt.Valid {
		c.LastMessageAt = &lastMessageAt.Time
	}
	return c, nil
}

// GetByID returns a conversation by ID, or nil if absent
func (r *ConversationRepository) GetByID(id string) (*models.Conversation, error) {
	row := r.db.QueryRow(`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetWithOrg returns a conversation and its owning organization id
func (r *ConversationRepository) GetWithOrg(id string) (*models.Conversation, string, error) {
	c := &models.Conversation{}
	var orgID string
	var lastMessageAt sql.NullTime
	err := r.db.QueryRow(`
		SELECT c.id, c.lead_id, COALESCE(c.agent_id, ''), c.channel, c.status, c.message_count,
			c.last_message_at, c.created_at, c.updated_at, l.organization_id
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id
		WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.LeadID, &c.AgentID, &c.Channel, &c.Status, &c.MessageCount,
		&lastMessageAt, &c.CreatedAt, &c.UpdatedAt, &orgID)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	if lastMessageAt.Valid {
		c.LastMessageAt = &lastMessageAt.Time
	}
	return c, orgID, nil
}

// FindActive returns the single active conversation for a (lead, channel)
// pair, or nil if none exists
func (r *ConversationRepository) FindActive(leadID string, channel models.ConversationChannel) (*models.Conversation, error) {
	row := r.db.QueryRow(`
		SELECT `+conversationColumns+` FROM conversations
		WHERE lead_id = ? AND channel = ? AND status = 'active'`, leadID, channel)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// List returns an organization's conversations with optional filtering,
// most recently active first
func (r *ConversationRepository) List(orgID string, filter models.ConversationListFilter) ([]models.Conversation, int, error) {
	where := "WHERE l.organization_id = ?"
	args := []any{orgID}

	if filter.Status != "" {
		where += " AND c.status = ?"
		args = append(args, filter.Status)
	}
	if filter.Channel != "" {
		where += " AND c.channel = ?"
		args = append(args, filter.Channel)
	}

	var total int
	err := r.db.QueryRow("SELECT COUNT(*) FROM conversations c JOIN leads l ON l.id = c.lead_id "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT c.id, c.lead_id, COALESCE(c.agent_id, ''), c.channel, c.status, c.message_count,
			c.last_message_at, c.created_at, c.updated_at
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id ` + where + `
		ORDER BY c.last_message_at DESC`
	if filter.Take > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Take)
	}
	if filter.Skip > 0 {
		if filter.Take <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Skip)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, total, rows.Err()
}

// RecordMessage applies the atomic counter update for one new message
func (r *ConversationRepository) RecordMessage(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE conversations SET message_count = message_count + 1, last_message_at = ?, updated_at = ?
		WHERE id = ?`, at, at, id)
	return err
}

// Close transitions a conversation to closed
func (r *ConversationRepository) Close(id string) error {
	res, err := r.db.Exec(`
		UPDATE conversations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.ConversationStatusClosed, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// CountActive counts active conversations across an organization
func (r *ConversationRepository) CountActive(orgID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM conversations c
		JOIN leads l ON l.id = c.lead_id
		WHERE l.organization_id = ? AND c.status = 'active'`, orgID).Scan(&n)
	return n, err
}

// ConversationStats holds per-organization conversation aggregates
type ConversationStats struct {
	Total               int
	Active              int
	Closed              int
	ChannelDistribution map[string]int
	AvgMessages         float64
}

// Stats aggregates conversation counts, channel distribution and message
// averages, optionally windowed on creation timestamps
func (r *ConversationRepository) Stats(orgID string, from, to *time.Time) (ConversationStats, error) {
	where := "WHERE l.organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND c.created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND c.created_at < ?"
		args = append(args, *to)
	}

	stats := ConversationStats{ChannelDistribution: map[string]int{}}

	var avg sql.NullFloat64
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(CASE WHEN c.status = 'active' THEN 1 END),
			COUNT(CASE WHEN c.status = 'closed' THEN 1 END),
			AVG(c.message_count)
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id `+where, args...,
	).Scan(&stats.Total, &stats.Active, &stats.Closed, &avg)
	if err != nil {
		return stats, err
	}
	stats.AvgMessages = avg.Float64

	rows, err := r.db.Query(`
		SELECT c.channel, COUNT(*)
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id `+where+`
		GROUP BY c.channel`, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var channel string
		var count int
		if err := rows.Scan(&channel, &count); err != nil {
			return stats, err
		}
		stats.ChannelDistribution[channel] = count
	}
	return stats, rows.Err()
}

// ResponseTimesByChannel derives average lead response minutes per channel.
// Each inbound message is paired with the closest preceding outbound message
// in its conversation.
func (r *ConversationRepository) ResponseTimesByChannel(orgID string, from, to *time.Time) (map[string]float64, error) {
	where := "WHERE m.direction = 'inbound' AND l.organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND m.timestamp >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND m.timestamp < ?"
		args = append(args, *to)
	}

	rows, err := r.db.Query(`
		SELECT c.channel,
			AVG((julianday(m.timestamp) - julianday((
				SELECT p.timestamp FROM messages p
				WHERE p.conversation_id = m.conversation_id
					AND p.direction = 'outbound' AND p.timestamp <= m.timestamp
				ORDER BY p.timestamp DESC LIMIT 1
			))) * 24 * 60)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		JOIN leads l ON l.id = c.lead_id `+where+`
		GROUP BY c.channel`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := map[string]float64{}
	for rows.Next() {
		var channel string
		var avg sql.NullFloat64
		if err := rows.Scan(&channel, &avg); err != nil {
			return nil, err
		}
		if avg.Valid {
			times[channel] = avg.Float64
		}
	}
	return times, rows.Err()
}
