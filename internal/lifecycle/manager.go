// Package lifecycle owns campaign state transitions and lead enrollment.
package lifecycle

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/metrics"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

// transitions is the legal campaign state graph
var transitions = map[models.CampaignStatus][]models.CampaignStatus{
	models.CampaignStatusDraft:     {models.CampaignStatusActive, models.CampaignStatusArchived},
	models.CampaignStatusActive:    {models.CampaignStatusPaused, models.CampaignStatusCompleted},
	models.CampaignStatusPaused:    {models.CampaignStatusActive},
	models.CampaignStatusCompleted: {models.CampaignStatusArchived},
}

func canTransition(from, to models.CampaignStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Manager drives the campaign state machine and enrollment rules
type Manager struct {
	campaigns     *repository.CampaignRepository
	campaignLeads *repository.CampaignLeadRepository
	leads         *repository.LeadRepository
	logger        *slog.Logger
}

// New creates a lifecycle manager
func New(campaigns *repository.CampaignRepository, campaignLeads *repository.CampaignLeadRepository,
	leads *repository.LeadRepository, logger *slog.Logger) *Manager {
	return &Manager{
		campaigns:     campaigns,
		campaignLeads: campaignLeads,
		leads:         leads,
		logger:        logger.With("component", "lifecycle"),
	}
}

func (m *Manager) get(orgID, campaignID string) (*models.Campaign, error) {
	c, err := m.campaigns.GetByID(orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, errs.ErrNotFound)
	}
	return c, nil
}

// Start transitions draft -> active, merges settings, stamps started_at and
// optionally enrolls leads
func (m *Manager) Start(orgID, campaignID string, settings *models.CampaignSettings, leadIDs []string) (*models.Campaign, error) {
	c, err := m.get(orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CampaignStatusDraft {
		return nil, fmt.Errorf("campaign %s is %s, start requires draft: %w", c.ID, c.Status, errs.ErrInvalidTransition)
	}

	if settings != nil {
		c.Settings = c.Settings.Merge(*settings)
	}
	now := time.Now()
	c.StartedAt = &now
	c.Status = models.CampaignStatusActive
	if err := m.campaigns.Update(c); err != nil {
		return nil, err
	}

	if len(leadIDs) > 0 {
		if err := m.Enroll(orgID, campaignID, leadIDs); err != nil {
			return nil, err
		}
	}

	metrics.IncCampaignTransition(string(models.CampaignStatusActive))
	m.logger.Info("campaign started", "campaign_id", c.ID, "org_id", orgID, "leads", len(leadIDs))
	return m.get(orgID, campaignID)
}

// Pause transitions active -> paused
func (m *Manager) Pause(orgID, campaignID string) (*models.Campaign, error) {
	return m.transition(orgID, campaignID, models.CampaignStatusPaused)
}

// Resume transitions paused -> active
func (m *Manager) Resume(orgID, campaignID string) (*models.Campaign, error) {
	return m.transition(orgID, campaignID, models.CampaignStatusActive)
}

// Complete transitions active -> completed and stamps completed_at
func (m *Manager) Complete(orgID, campaignID string) (*models.Campaign, error) {
	return m.transition(orgID, campaignID, models.CampaignStatusCompleted)
}

// Archive transitions draft or completed -> archived
func (m *Manager) Archive(orgID, campaignID string) (*models.Campaign, error) {
	return m.transition(orgID, campaignID, models.CampaignStatusArchived)
}

func (m *Manager) transition(orgID, campaignID string, to models.CampaignStatus) (*models.Campaign, error) {
	c, err := m.get(orgID, campaignID)
	if err != nil {
		return nil, err
	}
	if !canTransition(c.Status, to) {
		return nil, fmt.Errorf("campaign %s cannot move %s -> %s: %w", c.ID, c.Status, to, errs.ErrInvalidTransition)
	}

	c.Status = to
	if to == models.CampaignStatusCompleted {
		now := time.Now()
		c.CompletedAt = &now
	}
	if err := m.campaigns.Update(c); err != nil {
		return nil, err
	}

	metrics.IncCampaignTransition(string(to))
	m.logger.Info("campaign transitioned", "campaign_id", c.ID, "org_id", orgID, "status", to)
	return c, nil
}

// Enroll adds leads to a campaign. Re-enrolling an already-enrolled lead is a
// no-op. Totals are recomputed from the join table afterwards, never
// incremented, so overlapping concurrent batches cannot double-count.
func (m *Manager) Enroll(orgID, campaignID string, leadIDs []string) error {
	if _, err := m.get(orgID, campaignID); err != nil {
		return err
	}

	for _, leadID := range leadIDs {
		lead, err := m.leads.GetByID(orgID, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return fmt.Errorf("lead %s: %w", leadID, errs.ErrNotFound)
		}
		if _, err := m.campaignLeads.Enroll(campaignID, leadID); err != nil {
			return err
		}
	}

	metrics.AddLeadsEnrolled(len(leadIDs))
	return m.campaigns.RefreshLeadCounters(campaignID)
}

// ImportToCampaign imports raw records into a campaign: each record resolves
// to an existing lead by (organization, email) or a newly created one, then
// enrolls it. Records are processed independently; a bad record is recorded
// in Errors and the batch continues.
func (m *Manager) ImportToCampaign(orgID, campaignID string, records []models.LeadRecord) (models.ImportResult, error) {
	result := models.ImportResult{Errors: []string{}}

	if _, err := m.get(orgID, campaignID); err != nil {
		return result, err
	}

	// Duplicate emails within one batch resolve to the same lead.
	seen := map[string]string{} // email -> lead id

	for _, rec := range records {
		leadID, created, err := m.upsertLead(orgID, rec, seen)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import lead %s: %v", rec.Email, err))
			continue
		}
		if created {
			result.Created++
		}
		if _, err := m.campaignLeads.Enroll(campaignID, leadID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to enroll lead %s: %v", rec.Email, err))
		}
	}

	if err := m.campaigns.RefreshLeadCounters(campaignID); err != nil {
		return result, err
	}

	metrics.AddLeadsImported(result.Created)
	m.logger.Info("campaign import finished", "campaign_id", campaignID, "org_id", orgID,
		"created", result.Created, "errors", len(result.Errors))
	return result, nil
}

// ImportLeads imports raw records at the organization level, merging by email
func (m *Manager) ImportLeads(orgID string, records []models.LeadRecord) (models.ImportResult, error) {
	result := models.ImportResult{Errors: []string{}}
	seen := map[string]string{}

	for _, rec := range records {
		_, created, err := m.upsertLead(orgID, rec, seen)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import lead %s: %v", rec.Email, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	metrics.AddLeadsImported(result.Created)
	m.logger.Info("lead import finished", "org_id", orgID,
		"created", result.Created, "updated", result.Updated, "errors", len(result.Errors))
	return result, nil
}

// upsertLead finds a lead by (org, email) or creates it. An existing lead is
// merged: the record's non-empty fields win.
func (m *Manager) upsertLead(orgID string, rec models.LeadRecord, seen map[string]string) (string, bool, error) {
	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email == "" {
		return "", false, errs.NewValidation("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", false, errs.NewValidation("email", "is malformed")
	}

	if id, ok := seen[email]; ok {
		lead, err := m.leads.GetByID(orgID, id)
		if err != nil {
			return "", false, err
		}
		mergeRecord(lead, rec)
		return id, false, m.leads.Update(lead)
	}

	lead, err := m.leads.GetByEmail(orgID, email)
	if err != nil {
		return "", false, err
	}

	if lead != nil {
		mergeRecord(lead, rec)
		if err := m.leads.Update(lead); err != nil {
			return "", false, err
		}
		seen[email] = lead.ID
		return lead.ID, false, nil
	}

	lead = &models.Lead{
		OrganizationID: orgID,
		Email:          email,
		Phone:          rec.Phone,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Source:         rec.Source,
	}
	if err := m.leads.Create(lead); err != nil {
		return "", false, err
	}
	seen[email] = lead.ID
	return lead.ID, true, nil
}

func mergeRecord(lead *models.Lead, rec models.LeadRecord) {
	if rec.Phone != "" {
		lead.Phone = rec.Phone
	}
	if rec.FirstName != "" {
		lead.FirstName = rec.FirstName
	}
	if rec.LastName != "" {
		lead.LastName = rec.LastName
	}
	if rec.Source != "" {
		lead.Source = rec.Source
	}
}

// MarkConverted transitions a lead to converted and advances its campaign rows
func (m *Manager) MarkConverted(orgID, leadID string) (*models.Lead, error) {
	lead, err := m.leads.GetByID(orgID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, fmt.Errorf("lead %s: %w", leadID, errs.ErrNotFound)
	}

	if err := m.leads.MarkConverted(orgID, leadID, time.Now()); err != nil {
		return nil, err
	}

	rows, err := m.campaignLeads.ActiveByLead(leadID)
	if err != nil {
		return nil, err
	}
	for _, cl := range rows {
		if err := m.campaignLeads.MarkConverted(cl.ID); err != nil {
			return nil, err
		}
	}

	return m.leads.GetByID(orgID, leadID)
}

// Progress summarizes a campaign's derived counters for realtime pushes
func (m *Manager) Progress(orgID, campaignID string) (*models.CampaignProgress, error) {
	c, err := m.get(orgID, campaignID)
	if err != nil {
		return nil, err
	}
	return &models.CampaignProgress{
		Status:         c.Status,
		TotalLeads:     c.TotalLeads,
		ContactedLeads: c.ContactedLeads,
		RespondedLeads: c.RespondedLeads,
		ResponseRate:   c.ResponseRate,
	}, nil
}
