package models

import "time"

// AgentStatus is the availability status of an automated channel handler
type AgentStatus string

const (
	AgentStatusOnline      AgentStatus = "online"
	AgentStatusOffline     AgentStatus = "offline"
	AgentStatusMaintenance AgentStatus = "maintenance"
)

// AgentType is the channel an agent handles
type AgentType string

const (
	AgentTypeWhatsApp   AgentType = "whatsapp"
	AgentTypeEmail      AgentType = "email"
	AgentTypeSMS        AgentType = "sms"
	AgentTypeAIResponse AgentType = "ai_response"
)

// Agent is an automated channel handler. The activity counters are maintained
// by the orchestrator as a side effect of conversation activity.
type Agent struct {
	ID                     string      `json:"id"`
	OrganizationID         string      `json:"organization_id"`
	Name                   string      `json:"name"`
	Type                   AgentType   `json:"type"`
	Status                 AgentStatus `json:"status"`
	ActiveConversations    int         `json:"active_conversations"`
	TotalMessagesProcessed int         `json:"total_messages_processed"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// Online reports whether the agent is accepting conversations
func (a *Agent) Online() bool {
	return a.Status == AgentStatusOnline
}
