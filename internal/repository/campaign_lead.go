package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/models"
)

type CampaignLeadRepository struct {
	db *sql.DB
}

func NewCampaignLeadRepository(db *sql.DB) *CampaignLeadRepository {
	return &CampaignLeadRepository{db: db}
}

// Enroll inserts the (campaign, lead) row if absent. Re-enrolling is a no-op,
// not an error; the returned bool reports whether a row was created.
func (r *CampaignLeadRepository) Enroll(campaignID, leadID string) (bool, error) {
	now := time.Now()
	res, err := r.db.Exec(`
		INSERT INTO campaign_leads (id, campaign_id, lead_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id, lead_id) DO NOTHING`,
		uuid.New().String(), campaignID, leadID, models.CampaignLeadStatusPending, now, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const campaignLeadColumns = `id, campaign_id, lead_id, status, messages_sent, responses_received,
	last_message_sent_at, last_response_at, created_at, updated_at`

func scanCampaignLead(row interface{ Scan(...any) error }) (*models.CampaignLead, error) {
	cl := &models.CampaignLead{}
	var sentAt, respAt sql.NullTime
	err := row.Scan(&cl.ID, &cl.CampaignID, &cl.LeadID, &cl.Status, &cl.MessagesSent, &cl.ResponsesReceived,
		&sentAt, &respAt, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		cl.LastMessageSentAt = &sentAt.Time
	}
	if respAt.Valid {
		cl.LastResponseAt = &respAt.Time
	}
	return cl, nil
}

// GetByPair returns the row for a (campaign, lead) pair, or nil if absent
func (r *CampaignLeadRepository) GetByPair(campaignID, leadID string) (*models.CampaignLead, error) {
	row := r.db.QueryRow(`SELECT `+campaignLeadColumns+` FROM campaign_leads WHERE campaign_id = ? AND lead_id = ?`,
		campaignID, leadID)
	cl, err := scanCampaignLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cl, err
}

// ListByCampaign returns all rows for a campaign
func (r *CampaignLeadRepository) ListByCampaign(campaignID string) ([]models.CampaignLead, error) {
	rows, err := r.db.Query(`SELECT `+campaignLeadColumns+` FROM campaign_leads WHERE campaign_id = ? ORDER BY created_at ASC`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.CampaignLead{}
	for rows.Next() {
		cl, err := scanCampaignLead(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cl)
	}
	return list, rows.Err()
}

// CountByCampaign counts enrollment rows for a campaign
func (r *CampaignLeadRepository) CountByCampaign(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM campaign_leads WHERE campaign_id = ?", campaignID).Scan(&n)
	return n, err
}

// ActiveByLead returns the lead's rows in currently active campaigns
func (r *CampaignLeadRepository) ActiveByLead(leadID string) ([]models.CampaignLead, error) {
	rows, err := r.db.Query(`
		SELECT cl.id, cl.campaign_id, cl.lead_id, cl.status, cl.messages_sent, cl.responses_received,
			cl.last_message_sent_at, cl.last_response_at, cl.created_at, cl.updated_at
		FROM campaign_leads cl
		JOIN campaigns c ON c.id = cl.campaign_id
		WHERE cl.lead_id = ? AND c.status = 'active'`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.CampaignLead{}
	for rows.Next() {
		cl, err := scanCampaignLead(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cl)
	}
	return list, rows.Err()
}

// RecordOutbound bumps the sent counter and stamps last_message_sent_at.
// Status moves pending -> contacted; later statuses never regress.
func (r *CampaignLeadRepository) RecordOutbound(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE campaign_leads SET
			status = CASE WHEN status = 'pending' THEN 'contacted' ELSE status END,
			messages_sent = messages_sent + 1,
			last_message_sent_at = ?,
			updated_at = ?
		WHERE id = ?`, at, at, id)
	return err
}

// RecordInbound bumps the response counter and stamps last_response_at.
// Status moves pending/contacted -> responded; converted and failed stay put.
func (r *CampaignLeadRepository) RecordInbound(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE campaign_leads SET
			status = CASE WHEN status IN ('pending', 'contacted') THEN 'responded' ELSE status END,
			responses_received = responses_received + 1,
			last_response_at = ?,
			updated_at = ?
		WHERE id = ?`, at, at, id)
	return err
}

// MarkConverted advances a non-terminal row to converted
func (r *CampaignLeadRepository) MarkConverted(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaign_leads SET
			status = CASE WHEN status NOT IN ('converted', 'failed') THEN 'converted' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

// MarkFailed moves a non-terminal row to failed
func (r *CampaignLeadRepository) MarkFailed(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaign_leads SET
			status = CASE WHEN status NOT IN ('converted', 'failed') THEN 'failed' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}
