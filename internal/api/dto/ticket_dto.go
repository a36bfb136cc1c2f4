package dto

import (
	"time"

	"github.com/creatorlane/marketplace/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	ExternalKey     string                `json:"external_key"`
	OrderID         string                `json:"order_id"`
	BrandID         string                `json:"brand_id"`
	CreatorID       string                `json:"creator_id"`
	AssignedAgentID *string               `json:"assigned_agent_id"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Subject         string                `json:"subject"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	History []TicketHistoryResponse `json:"history,omitempty"`
}

// TicketMessageResponse represents one thread message.
type TicketMessageResponse struct {
	ID          string             `json:"id"`
	TicketID    string             `json:"ticket_id"`
	SenderRole  domain.SenderRole  `json:"sender_role"`
	SenderID    *string            `json:"sender_id"`
	ChannelType domain.ChannelTag  `json:"channel_type"`
	MessageType domain.MessageType `json:"message_type"`
	Body        string             `json:"message_text"`
	ClientRef   *string            `json:"client_ref,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// CreateMessageRequest payload. The message field duplicates message_text for
// legacy clients; either may be set.
type CreateMessageRequest struct {
	MessageText string            `json:"message_text"`
	Message     string            `json:"message"`
	MessageType string            `json:"message_type"`
	SenderRole  domain.SenderRole `json:"sender_role"`
	ChannelType domain.ChannelTag `json:"channel_type"`
	ClientRef   *string           `json:"client_ref,omitempty"`
}

// Body returns the effective message text, preferring the modern field.
func (r CreateMessageRequest) Body() string {
	if r.MessageText != "" {
		return r.MessageText
	}
	return r.Message
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// UpdateTicketPriorityRequest payload.
type UpdateTicketPriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// TicketHistoryResponse audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByRole domain.SenderRole       `json:"changed_by_role"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// AgentSummary response.
type AgentSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Active      bool   `json:"active"`
	OpenTickets int    `json:"open_tickets"`
}
