package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

type AgentRepository struct {
	db *sql.DB
}

func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Create creates a new agent
func (r *AgentRepository) Create(a *models.Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = models.AgentStatusOnline
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO agents (id, organization_id, name, type, status, active_conversations, total_messages_processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		a.ID, a.OrganizationID, a.Name, a.Type, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

const agentColumns = `id, organization_id, name, type, status, active_conversations, total_messages_processed, created_at, updated_at`

// GetByID returns an agent by ID within an organization, or nil if absent
func (r *AgentRepository) GetByID(orgID, id string) (*models.Agent, error) {
	a := &models.Agent{}
	err := r.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE organization_id = ? AND id = ?`, orgID, id).Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.Type, &a.Status,
		&a.ActiveConversations, &a.TotalMessagesProcessed, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByOrg returns all agents for an organization
func (r *AgentRepository) ListByOrg(orgID string) ([]models.Agent, error) {
	rows, err := r.db.Query(`SELECT `+agentColumns+` FROM agents WHERE organization_id = ? ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		var a models.Agent
		err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.Type, &a.Status,
			&a.ActiveConversations, &a.TotalMessagesProcessed, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateStatus changes an agent's availability status
func (r *AgentRepository) UpdateStatus(orgID, id string, status models.AgentStatus) error {
	res, err := r.db.Exec(`
		UPDATE agents SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE organization_id = ? AND id = ?`, status, orgID, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("agent %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// AdjustActiveConversations atomically shifts the active conversation count,
// clamped at zero
func (r *AgentRepository) AdjustActiveConversations(id string, delta int) error {
	_, err := r.db.Exec(`
		UPDATE agents SET active_conversations = MAX(0, active_conversations + ?), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, delta, id)
	return err
}

// IncrementMessagesProcessed bumps the lifetime message counter
func (r *AgentRepository) IncrementMessagesProcessed(id string) error {
	_, err := r.db.Exec(`
		UPDATE agents SET total_messages_processed = total_messages_processed + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

// AgentPerformanceRow is one agent's conversation workload
type AgentPerformanceRow struct {
	AgentID             string             `json:"agent_id"`
	AgentName           string             `json:"agent_name"`
	AgentType           models.AgentType   `json:"agent_type"`
	Status              models.AgentStatus `json:"status"`
	ActiveConversations int                `json:"active_conversations"`
	TotalConversations  int                `json:"total_conversations"`
	TotalMessages       int                `json:"total_messages"`
}

// PerformanceRows aggregates conversation workload per agent
func (r *AgentRepository) PerformanceRows(orgID string) ([]AgentPerformanceRow, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.name, a.type, a.status, a.active_conversations,
			COUNT(c.id), COALESCE(SUM(c.message_count), 0)
		FROM agents a
		LEFT JOIN conversations c ON c.agent_id = a.id
		WHERE a.organization_id = ?
		GROUP BY a.id
		ORDER BY a.created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perf := []AgentPerformanceRow{}
	for rows.Next() {
		var p AgentPerformanceRow
		err := rows.Scan(&p.AgentID, &p.AgentName, &p.AgentType, &p.Status,
			&p.ActiveConversations, &p.TotalConversations, &p.TotalMessages)
		if err != nil {
			return nil, err
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}
