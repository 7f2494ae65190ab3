package realtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leadwire/leadwire/internal/activity"
	"github.com/leadwire/leadwire/internal/analytics"
	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

// Orchestrator turns entity mutations into ordered topic pushes. It owns the
// conversation write path; handlers never touch message rows directly.
// Push failures are logged and never propagated to the caller: the mutation
// has already committed.
type Orchestrator struct {
	gateway       *Gateway
	engine        *analytics.Engine
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
	leads         *repository.LeadRepository
	campaignLeads *repository.CampaignLeadRepository
	agents        *repository.AgentRepository
	journal       *activity.Journal
	logger        *slog.Logger
}

// NewOrchestrator creates an orchestrator. journal may be nil.
func NewOrchestrator(gateway *Gateway, engine *analytics.Engine,
	conversations *repository.ConversationRepository, messages *repository.MessageRepository,
	leads *repository.LeadRepository, campaignLeads *repository.CampaignLeadRepository,
	agents *repository.AgentRepository, journal *activity.Journal, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:       gateway,
		engine:        engine,
		conversations: conversations,
		messages:      messages,
		leads:         leads,
		campaignLeads: campaignLeads,
		agents:        agents,
		journal:       journal,
		logger:        logger.With("component", "orchestrator"),
	}
}

// getOwned loads a conversation and enforces the tenant boundary
func (o *Orchestrator) getOwned(orgID, conversationID string) (*models.Conversation, error) {
	conv, owner, err := o.conversations.GetWithOrg(conversationID)
	if err != nil {
		return nil, err
	}
	if owner != orgID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, errs.ErrNotFound)
	}
	return conv, nil
}

// FindOrCreateConversation returns the active conversation for a (lead,
// channel) pair, creating one lazily. At most one active conversation exists
// per pair.
func (o *Orchestrator) FindOrCreateConversation(orgID, leadID string, channel models.ConversationChannel, agentID string) (*models.Conversation, error) {
	lead, err := o.leads.GetByID(orgID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, fmt.Errorf("lead %s: %w", leadID, errs.ErrNotFound)
	}

	conv, err := o.conversations.FindActive(leadID, channel)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &models.Conversation{LeadID: leadID, AgentID: agentID, Channel: channel}
	if err := o.conversations.Create(conv); err != nil {
		return nil, err
	}
	if agentID != "" {
		if err := o.agents.AdjustActiveConversations(agentID, 1); err != nil {
			o.logger.Error("failed to bump agent conversations", "agent_id", agentID, "error", err)
		}
	}

	o.logger.Info("conversation opened", "conversation_id", conv.ID, "lead_id", leadID, "channel", channel)
	return conv, nil
}

// CloseConversation closes a conversation and releases its agent slot
func (o *Orchestrator) CloseConversation(orgID, conversationID string) error {
	conv, err := o.getOwned(orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.Status != models.ConversationStatusActive {
		return nil
	}

	if err := o.conversations.Close(conv.ID); err != nil {
		return err
	}
	if conv.AgentID != "" {
		if err := o.agents.AdjustActiveConversations(conv.AgentID, -1); err != nil {
			o.logger.Error("failed to release agent conversation", "agent_id", conv.AgentID, "error", err)
		}
	}

	o.gateway.Multicast(orgID, "conversation:updated", conv)
	o.pushDashboard(orgID)
	return nil
}

// AddMessage persists a message and fans the mutation out: conversation
// counters, lead and campaign progress on inbound, agent counters, then the
// ordered pushes.
func (o *Orchestrator) AddMessage(orgID, conversationID string, direction models.MessageDirection, content string, aiGenerated bool) (*models.Message, error) {
	if content == "" {
		return nil, errs.NewValidation("content", "is required")
	}
	if direction != models.DirectionInbound && direction != models.DirectionOutbound {
		return nil, errs.NewValidation("direction", "must be inbound or outbound")
	}

	conv, err := o.getOwned(orgID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      direction,
		Content:        content,
		AIGenerated:    aiGenerated,
	}
	if err := o.messages.Create(msg); err != nil {
		return nil, err
	}
	if err := o.conversations.RecordMessage(conv.ID, msg.Timestamp); err != nil {
		return nil, err
	}

	o.applyMessageSideEffects(conv, msg)

	// Ordered pushes: org feed, conversation thread, conversation header,
	// then the dashboard snapshot
	o.gateway.Multicast(orgID, "conversation:new-message", map[string]any{
		"conversation_id": conv.ID,
		"message":         msg,
	})
	o.gateway.Multicast(ConversationTopic(conv.ID), "message:new", msg)

	if updated, _, err := o.conversations.GetWithOrg(conv.ID); err == nil && updated != nil {
		o.gateway.Multicast(orgID, "conversation:updated", updated)
	}
	o.pushDashboard(orgID)

	o.appendActivity(orgID, conv, msg)
	return msg, nil
}

// applyMessageSideEffects advances lead, campaign and agent counters for one
// stored message
func (o *Orchestrator) applyMessageSideEffects(conv *models.Conversation, msg *models.Message) {
	rows, err := o.campaignLeads.ActiveByLead(conv.LeadID)
	if err != nil {
		o.logger.Error("failed to load campaign rows", "lead_id", conv.LeadID, "error", err)
		rows = nil
	}

	switch msg.Direction {
	case models.DirectionInbound:
		if err := o.leads.IncrementResponseCount(conv.LeadID); err != nil {
			o.logger.Error("failed to bump lead responses", "lead_id", conv.LeadID, "error", err)
		}
		for _, row := range rows {
			if err := o.campaignLeads.RecordInbound(row.ID, msg.Timestamp); err != nil {
				o.logger.Error("failed to record inbound", "campaign_lead_id", row.ID, "error", err)
			}
		}
	case models.DirectionOutbound:
		if err := o.leads.MarkContacted(conv.LeadID, msg.Timestamp); err != nil {
			o.logger.Error("failed to mark lead contacted", "lead_id", conv.LeadID, "error", err)
		}
		for _, row := range rows {
			if err := o.campaignLeads.RecordOutbound(row.ID, msg.Timestamp); err != nil {
				o.logger.Error("failed to record outbound", "campaign_lead_id", row.ID, "error", err)
			}
		}
	}

	if conv.AgentID != "" {
		if err := o.agents.IncrementMessagesProcessed(conv.AgentID); err != nil {
			o.logger.Error("failed to bump agent messages", "agent_id", conv.AgentID, "error", err)
		}
	}
}

// CampaignStatusChanged pushes the campaign's current progress after a
// lifecycle transition
func (o *Orchestrator) CampaignStatusChanged(orgID string, c *models.Campaign) {
	progress := models.CampaignProgress{
		Status:         c.Status,
		TotalLeads:     c.TotalLeads,
		ContactedLeads: c.ContactedLeads,
		RespondedLeads: c.RespondedLeads,
		ResponseRate:   c.ResponseRate,
	}

	o.gateway.Multicast(orgID, "campaign:progress", map[string]any{
		"campaign_id": c.ID,
		"progress":    progress,
	})
	o.gateway.Multicast(CampaignTopic(c.ID), "progress:update", progress)
	o.pushDashboard(orgID)

	o.journalAppend(orgID, activity.Entry{
		Type:     "campaign_" + string(c.Status),
		Message:  fmt.Sprintf("campaign %q is now %s", c.Name, c.Status),
		EntityID: c.ID,
	})
}

// LeadConverted pushes the lead's status change
func (o *Orchestrator) LeadConverted(orgID string, lead *models.Lead) {
	o.gateway.Multicast(orgID, "lead:status-changed", map[string]any{
		"lead_id":    lead.ID,
		"new_status": lead.Status,
	})
	o.pushDashboard(orgID)

	o.journalAppend(orgID, activity.Entry{
		Type:     "lead_converted",
		Message:  fmt.Sprintf("%s converted", lead.FullName()),
		EntityID: lead.ID,
	})
}

// pushDashboard recomputes the overview and multicasts it to the org topic
func (o *Orchestrator) pushDashboard(orgID string) {
	overview, err := o.engine.DashboardOverview(orgID)
	if err != nil {
		o.logger.Error("failed to build dashboard overview", "org_id", orgID, "error", err)
		return
	}
	o.gateway.Multicast(orgID, "dashboard:update", overview)
}

func (o *Orchestrator) appendActivity(orgID string, conv *models.Conversation, msg *models.Message) {
	excerpt := msg.Content
	if len(excerpt) > 80 {
		excerpt = excerpt[:80]
	}
	o.journalAppend(orgID, activity.Entry{
		Type:      "message_" + string(msg.Direction),
		Message:   fmt.Sprintf("%s message on %s: %s", msg.Direction, conv.Channel, excerpt),
		EntityID:  conv.ID,
		Timestamp: msg.Timestamp,
	})
}

func (o *Orchestrator) journalAppend(orgID string, e activity.Entry) {
	if o.journal == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := o.journal.Append(orgID, e); err != nil {
		o.logger.Error("failed to append activity", "org_id", orgID, "error", err)
	}
}
