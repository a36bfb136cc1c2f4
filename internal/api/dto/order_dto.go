package dto

import (
	"time"

	"github.com/creatorlane/marketplace/internal/domain"
)

// OrderResponse is the role-agnostic order view.
type OrderResponse struct {
	ID                     string                `json:"id"`
	BrandID                string                `json:"brand_id"`
	CreatorID              string                `json:"creator_id"`
	PackageID              string                `json:"package_id"`
	Quantity               int                   `json:"quantity"`
	Currency               string                `json:"currency"`
	TotalAmountCents       int64                 `json:"total_amount_cents"`
	Status                 domain.OrderStatus    `json:"status"`
	RejectionMessage       *string               `json:"rejection_message,omitempty"`
	AdditionalInstructions string                `json:"additional_instructions"`
	ReferenceLinks         []string              `json:"reference_links"`
	DeliveryEstimateDays   *int                  `json:"delivery_estimate_days,omitempty"`
	Deliverables           []DeliverableResponse `json:"deliverables"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// DeliverableResponse describes one submitted file.
type DeliverableResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// RejectOrderRequest payload.
type RejectOrderRequest struct {
	RejectionMessage string `json:"rejection_message"`
}

// SubmitDeliverablesRequest payload.
type SubmitDeliverablesRequest struct {
	Deliverables []DeliverableRequest `json:"deliverables"`
}

// DeliverableRequest describes deliverable input.
type DeliverableRequest struct {
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// UpdateOrderStatusRequest payload.
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}
