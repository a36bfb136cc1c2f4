package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the support conversation record tied to one order. Tickets are
// never hard-deleted; closing is a status change.
type Ticket struct {
	ID              string
	ExternalKey     string
	OrderID         string
	BrandID         string
	CreatorID       string
	AssignedAgentID *string
	Status          TicketStatus
	Priority        TicketPriority
	Subject         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
