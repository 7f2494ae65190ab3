package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign in draft status
func (r *CampaignRepository) Create(c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode campaign settings: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO campaigns (id, organization_id, name, type, status, description, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrganizationID, c.Name, c.Type, c.Status, c.Description, string(settings), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

const campaignColumns = `id, organization_id, name, type, status, COALESCE(description, ''), COALESCE(settings, '{}'),
	total_leads, contacted_leads, responded_leads, response_rate, started_at, completed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	c := &models.Campaign{}
	var settings string
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.Type, &c.Status, &c.Description, &settings,
		&c.TotalLeads, &c.ContactedLeads, &c.RespondedLeads, &c.ResponseRate,
		&startedAt, &completedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(settings), &c.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode campaign settings: %w", err)
	}
	if startedAt.Valid {
		c.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return c, nil
}

// GetByID returns a campaign by ID within an organization, or nil if absent
func (r *CampaignRepository) GetByID(orgID, id string) (*models.Campaign, error) {
	row := r.db.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE organization_id = ? AND id = ?`, orgID, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// List returns all campaigns for an organization, newest first
func (r *CampaignRepository) List(orgID string) ([]models.Campaign, error) {
	rows, err := r.db.Query(`SELECT `+campaignColumns+` FROM campaigns WHERE organization_id = ? ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// Update persists a campaign's status, settings and timestamps
func (r *CampaignRepository) Update(c *models.Campaign) error {
	c.UpdatedAt = time.Now()

	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode campaign settings: %w", err)
	}

	res, err := r.db.Exec(`
		UPDATE campaigns SET name = ?, type = ?, status = ?, description = ?, settings = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE organization_id = ? AND id = ?`,
		c.Name, c.Type, c.Status, c.Description, string(settings),
		c.StartedAt, c.CompletedAt, c.UpdatedAt, c.OrganizationID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("campaign %s: %w", c.ID, errs.ErrNotFound)
	}
	return nil
}

// CountActive counts active campaigns in an organization
func (r *CampaignRepository) CountActive(orgID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM campaigns WHERE organization_id = ? AND status = ?",
		orgID, models.CampaignStatusActive,
	).Scan(&n)
	return n, err
}

// RefreshLeadCounters recomputes the derived lead counters from the join
// table in a single statement. Recomputing (rather than incrementing)
// sidesteps lost-update races under concurrent imports.
func (r *CampaignRepository) RefreshLeadCounters(campaignID string) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET
			total_leads = (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id),
			contacted_leads = (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id AND status != 'pending'),
			responded_leads = (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id AND status = 'responded'),
			response_rate = CASE
				WHEN (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id) > 0
				THEN (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id AND status = 'responded') * 100.0
					/ (SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = campaigns.id)
				ELSE 0
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, campaignID)
	return err
}

// PerformanceRow is one campaign's aggregate performance
type PerformanceRow struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Type               models.CampaignType   `json:"type"`
	Status             models.CampaignStatus `json:"status"`
	Leads              int                   `json:"leads"`
	Contacted          int                   `json:"contacted"`
	Responded          int                   `json:"responded"`
	Converted          int                   `json:"converted"`
	AvgResponseMinutes float64               `json:"avg_response_minutes"`
}

// PerformanceRows aggregates campaign-lead progress per campaign. Converted
// follows the lead's own status; the average response time is the mean gap
// between last_message_sent_at and last_response_at over rows carrying both.
func (r *CampaignRepository) PerformanceRows(orgID string) ([]PerformanceRow, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.name, c.type, c.status,
			COUNT(cl.id),
			COUNT(CASE WHEN cl.status != 'pending' THEN 1 END),
			COUNT(CASE WHEN cl.status = 'responded' THEN 1 END),
			COUNT(CASE WHEN l.status = 'converted' THEN 1 END),
			COALESCE(AVG(CASE
				WHEN cl.last_response_at IS NOT NULL AND cl.last_message_sent_at IS NOT NULL
				THEN (julianday(cl.last_response_at) - julianday(cl.last_message_sent_at)) * 24 * 60
			END), 0)
		FROM campaigns c
		LEFT JOIN campaign_leads cl ON cl.campaign_id = c.id
		LEFT JOIN leads l ON l.id = cl.lead_id
		WHERE c.organization_id = ?
		GROUP BY c.id
		ORDER BY c.created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perf := []PerformanceRow{}
	for rows.Next() {
		var p PerformanceRow
		err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Status,
			&p.Leads, &p.Contacted, &p.Responded, &p.Converted, &p.AvgResponseMinutes)
		if err != nil {
			return nil, err
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}
