package domain

import "time"

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReview     OrderStatus = "review"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRejected
}

// Order is the commercial engagement between a brand and a creator.
type Order struct {
	ID                     string
	BrandID                string
	CreatorID              string
	PackageID              string
	Quantity               int
	Currency               string
	TotalAmountCents       int64
	Status                 OrderStatus
	RejectionMessage       *string
	AdditionalInstructions string
	ReferenceLinks         []string
	DeliveryEstimateDays   *int
	Deliverables           []Deliverable
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Deliverable describes one file submitted by the creator.
type Deliverable struct {
	ID        string
	OrderID   string
	URL       string
	FileName  string
	FileType  string
	SizeBytes int64
	CreatedAt time.Time
}
