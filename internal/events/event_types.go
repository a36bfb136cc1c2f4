package events

import (
	"time"

	"github.com/creatorlane/marketplace/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderAccepted          EventType = "order_accepted"
	EventOrderRejected          EventType = "order_rejected"
	EventOrderStatusChanged     EventType = "order_status_changed"
	EventDeliverablesSubmitted  EventType = "order_deliverables_submitted"
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketPriorityChanged  EventType = "ticket_priority_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketMessageAdded     EventType = "ticket_message_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type      domain.SubjectType `json:"type"`
	AccountID *string            `json:"account_id,omitempty"`
	AgentID   *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrderID   string      `json:"order_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	OldStatus        domain.OrderStatus `json:"old_status"`
	NewStatus        domain.OrderStatus `json:"new_status"`
	RejectionMessage *string            `json:"rejection_message,omitempty"`
}

// DeliverablesSubmittedPayload payload.
type DeliverablesSubmittedPayload struct {
	Count int      `json:"count"`
	URLs  []string `json:"urls"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OrderID  string                `json:"order_id"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedAgentID *string `json:"assigned_agent_id,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderRole  domain.SenderRole `json:"sender_role"`
	Channel     domain.ChannelTag `json:"channel_type"`
	Body        string            `json:"message_text"`
	BodyPreview string            `json:"body_preview"`
	ClientRef   string            `json:"client_ref,omitempty"`
}
