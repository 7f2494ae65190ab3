package models

import "time"

// CampaignStatus is the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// CampaignType is the outreach channel mix of a campaign
type CampaignType string

const (
	CampaignTypeEmail        CampaignType = "email"
	CampaignTypeWhatsApp     CampaignType = "whatsapp"
	CampaignTypeSMS          CampaignType = "sms"
	CampaignTypeMultiChannel CampaignType = "multi_channel"
)

// WorkingHours bounds outreach to a daily window
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CampaignSettings controls pacing of an outreach campaign
type CampaignSettings struct {
	DailyLimit         int          `json:"daily_limit"`
	Timezone           string       `json:"timezone"`
	WorkingHours       WorkingHours `json:"working_hours"`
	FollowUpDelay      int          `json:"follow_up_delay"` // hours
	MaxMessagesPerLead int          `json:"max_messages_per_lead"`
}

// Merge overlays non-zero fields of other onto s
func (s CampaignSettings) Merge(other CampaignSettings) CampaignSettings {
	if other.DailyLimit != 0 {
		s.DailyLimit = other.DailyLimit
	}
	if other.Timezone != "" {
		s.Timezone = other.Timezone
	}
	if other.WorkingHours.Start != "" {
		s.WorkingHours.Start = other.WorkingHours.Start
	}
	if other.WorkingHours.End != "" {
		s.WorkingHours.End = other.WorkingHours.End
	}
	if other.FollowUpDelay != 0 {
		s.FollowUpDelay = other.FollowUpDelay
	}
	if other.MaxMessagesPerLead != 0 {
		s.MaxMessagesPerLead = other.MaxMessagesPerLead
	}
	return s
}

// Campaign is a scheduled outreach effort enrolling leads through a channel.
// The lead counters are derived from the campaign_leads join table, never
// mutated independently.
type Campaign struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Type           CampaignType     `json:"type"`
	Status         CampaignStatus   `json:"status"`
	Description    string           `json:"description,omitempty"`
	Settings       CampaignSettings `json:"settings"`
	TotalLeads     int              `json:"total_leads"`
	ContactedLeads int              `json:"contacted_leads"`
	RespondedLeads int              `json:"responded_leads"`
	ResponseRate   float64          `json:"response_rate"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CampaignLeadStatus is the per-campaign progress of one lead.
// It only advances forward: pending -> contacted -> responded -> converted,
// with failed reachable from any non-terminal state.
type CampaignLeadStatus string

const (
	CampaignLeadStatusPending   CampaignLeadStatus = "pending"
	CampaignLeadStatusContacted CampaignLeadStatus = "contacted"
	CampaignLeadStatusResponded CampaignLeadStatus = "responded"
	CampaignLeadStatusConverted CampaignLeadStatus = "converted"
	CampaignLeadStatusFailed    CampaignLeadStatus = "failed"
)

// CampaignLead is the per-(campaign, lead) progress record. At most one row
// exists per pair.
type CampaignLead struct {
	ID                string             `json:"id"`
	CampaignID        string             `json:"campaign_id"`
	LeadID            string             `json:"lead_id"`
	Status            CampaignLeadStatus `json:"status"`
	MessagesSent      int                `json:"messages_sent"`
	ResponsesReceived int                `json:"responses_received"`
	LastMessageSentAt *time.Time         `json:"last_message_sent_at,omitempty"`
	LastResponseAt    *time.Time         `json:"last_response_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CampaignProgress is the payload multicast on campaign status changes
type CampaignProgress struct {
	Status         CampaignStatus `json:"status"`
	TotalLeads     int            `json:"total_leads"`
	ContactedLeads int            `json:"contacted_leads"`
	RespondedLeads int            `json:"responded_leads"`
	ResponseRate   float64        `json:"response_rate"`
}
