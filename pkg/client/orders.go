package client

import (
	"context"
	"strings"
)

// Order statuses as the server reports them.
const (
	OrderStatusPending    = "pending"
	OrderStatusAccepted   = "accepted"
	OrderStatusInProgress = "in_progress"
	OrderStatusReview     = "review"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRejected   = "rejected"
)

var knownOrderStatuses = map[string]struct{}{
	OrderStatusPending:    {},
	OrderStatusAccepted:   {},
	OrderStatusInProgress: {},
	OrderStatusReview:     {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
	OrderStatusRejected:   {},
}

// OrderController exposes role-scoped order lifecycle operations. Inputs
// that would certainly fail are blocked before any network dispatch; the
// server remains the authority on state transitions, and a conflict there
// surfaces as an APIError the caller reconciles on the next refetch.
type OrderController struct {
	client *Client
}

// NewOrderController builds the controller over an API client.
func NewOrderController(apiClient *Client) *OrderController {
	return &OrderController{client: apiClient}
}

// Get fetches the current order state.
func (oc *OrderController) Get(ctx context.Context, orderID string) (*Order, error) {
	return oc.client.GetOrder(ctx, orderID)
}

// List fetches the caller's orders.
func (oc *OrderController) List(ctx context.Context, statuses ...string) ([]Order, error) {
	return oc.client.ListOrders(ctx, statuses...)
}

// Accept moves a pending order to accepted. An order already past pending
// surfaces a conflict from the server.
func (oc *OrderController) Accept(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := oc.client.session.Do(ctx, "PUT", "/api/orders/"+orderID+"/accept", nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Reject declines a pending order. An empty rejection message is blocked
// before dispatch.
func (oc *OrderController) Reject(ctx context.Context, orderID, rejectionMessage string) (*Order, error) {
	if strings.TrimSpace(rejectionMessage) == "" {
		return nil, &ValidationError{Field: "rejection_message", Message: "rejection message is required"}
	}
	payload := map[string]string{"rejection_message": rejectionMessage}
	var order Order
	if err := oc.client.session.Do(ctx, "PUT", "/api/orders/"+orderID+"/reject", nil, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SubmitDeliverables uploads the creator's work, moving the order toward
// review. An empty list, or a deliverable without a resolvable URL, is
// blocked before dispatch.
func (oc *OrderController) SubmitDeliverables(ctx context.Context, orderID string, deliverables []Deliverable) (*Order, error) {
	if len(deliverables) == 0 {
		return nil, &ValidationError{Field: "deliverables", Message: "at least one deliverable is required"}
	}
	for _, d := range deliverables {
		if !isResolvableURL(d.URL) {
			return nil, &ValidationError{Field: "deliverables", Message: "deliverable url is not resolvable: " + d.URL}
		}
	}
	payload := map[string][]Deliverable{"deliverables": deliverables}
	var order Order
	if err := oc.client.session.Do(ctx, "POST", "/api/orders/"+orderID+"/deliverables", nil, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus is the administrative override. The status must be a known
// lifecycle value; the server's transition table decides whether the move
// is legal and answers INVALID_STATE when it is not.
func (oc *OrderController) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	if _, ok := knownOrderStatuses[status]; !ok {
		return nil, &ValidationError{Field: "status", Message: "unknown order status: " + status}
	}
	if status == OrderStatusRejected {
		return nil, &ValidationError{Field: "status", Message: "use Reject to decline an order"}
	}
	payload := map[string]string{"status": status}
	var order Order
	if err := oc.client.session.Do(ctx, "PUT", "/api/orders/"+orderID+"/status", nil, payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel moves a non-terminal order to cancelled.
func (oc *OrderController) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return oc.UpdateStatus(ctx, orderID, OrderStatusCancelled)
}

func isResolvableURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
