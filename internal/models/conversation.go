package models

import "time"

// ConversationChannel identifies the messaging channel of a conversation
type ConversationChannel string

const (
	ChannelWhatsApp ConversationChannel = "whatsapp"
	ChannelEmail    ConversationChannel = "email"
	ChannelSMS      ConversationChannel = "sms"
)

// ConversationStatus is the lifecycle status of a conversation
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusClosed   ConversationStatus = "closed"
	ConversationStatusArchived ConversationStatus = "archived"
)

// Conversation is a channel-scoped thread of messages with one lead. At most
// one active conversation exists per (lead, channel) pair; one is created
// lazily on first message.
type Conversation struct {
	ID            string              `json:"id"`
	LeadID        string              `json:"lead_id"`
	AgentID       string              `json:"agent_id,omitempty"`
	Channel       ConversationChannel `json:"channel"`
	Status        ConversationStatus  `json:"status"`
	MessageCount  int                 `json:"message_count"`
	LastMessageAt *time.Time          `json:"last_message_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// MessageDirection is inbound (from the lead) or outbound (to the lead)
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Message belongs to exactly one conversation. Immutable once created except
// for the delivery/read timestamps.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Direction      MessageDirection `json:"direction"`
	Content        string           `json:"content"`
	AIGenerated    bool             `json:"ai_generated"`
	Read           bool             `json:"read"`
	DeliveredAt    *time.Time       `json:"delivered_at,omitempty"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// ConversationListFilter for listing conversations
type ConversationListFilter struct {
	Status  ConversationStatus
	Channel ConversationChannel
	Skip    int
	Take    int
}
