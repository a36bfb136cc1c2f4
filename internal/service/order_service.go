package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	"github.com/creatorlane/marketplace/internal/repository"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// allowedOrderTransitions is the full transition table. Transitions absent
// here are rejected with INVALID_STATE rather than written through.
var allowedOrderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusAccepted, domain.OrderStatusRejected, domain.OrderStatusCancelled},
	domain.OrderStatusAccepted:   {domain.OrderStatusInProgress, domain.OrderStatusReview, domain.OrderStatusCancelled},
	domain.OrderStatusInProgress: {domain.OrderStatusReview, domain.OrderStatusCancelled},
	domain.OrderStatusReview:     {domain.OrderStatusCompleted, domain.OrderStatusInProgress, domain.OrderStatusCancelled},
	domain.OrderStatusCompleted:  {},
	domain.OrderStatusCancelled:  {},
	domain.OrderStatusRejected:   {},
}

func isValidOrderTransition(current, next domain.OrderStatus) bool {
	for _, candidate := range allowedOrderTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// DeliverableInput describes one submitted file descriptor.
type DeliverableInput struct {
	URL       string
	FileName  string
	FileType  string
	SizeBytes int64
}

// OrderService coordinates the order lifecycle for both marketplace sides.
type OrderService struct {
	orders       repository.OrderRepository
	deliverables repository.DeliverableRepository
	tickets      repository.TicketRepository
	messages     repository.TicketMessageRepository
	dispatcher   events.Dispatcher
}

// OrderDependencies bundles repositories for the order service.
type OrderDependencies struct {
	OrderRepo       repository.OrderRepository
	DeliverableRepo repository.DeliverableRepository
	TicketRepo      repository.TicketRepository
	MessageRepo     repository.TicketMessageRepository
	Dispatcher      events.Dispatcher
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{
		orders:       deps.OrderRepo,
		deliverables: deps.DeliverableRepo,
		tickets:      deps.TicketRepo,
		messages:     deps.MessageRepo,
		dispatcher:   deps.Dispatcher,
	}
}

// GetOrder fetches an order with its deliverables, ensuring the caller is a
// party to it (agents see everything).
func (s *OrderService) GetOrder(ctx context.Context, caller domain.SubjectType, callerID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller == domain.SubjectTypeAccount && order.BrandID != callerID && order.CreatorID != callerID {
		return nil, apperrors.NewForbidden("not a party to this order")
	}
	items, err := s.deliverables.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Deliverables = items
	return order, nil
}

// ListOrdersForAccount returns the brand or creator view of their orders.
func (s *OrderService) ListOrdersForAccount(ctx context.Context, account *domain.Account, statuses []domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	filter := repository.OrderFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}
	if account.Role == domain.AccountRoleCreator {
		filter.CreatorID = &account.ID
	} else {
		filter.BrandID = &account.ID
	}
	return s.orders.ListWithFilter(ctx, filter)
}

// AcceptOrder transitions pending -> accepted for the assigned creator.
func (s *OrderService) AcceptOrder(ctx context.Context, creatorID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CreatorID != creatorID {
		return nil, apperrors.NewForbidden("order belongs to another creator")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.NewInvalidState("order is not pending", map[string]any{
			"order_id": orderID,
			"status":   order.Status,
		})
	}
	return s.transition(ctx, order, domain.OrderStatusAccepted, nil, creatorActor(creatorID), events.EventOrderAccepted)
}

// RejectOrder transitions pending -> rejected. A non-empty rejection message
// is required.
func (s *OrderService) RejectOrder(ctx context.Context, creatorID, orderID, rejectionMessage string) (*domain.Order, error) {
	rejectionMessage = strings.TrimSpace(rejectionMessage)
	if rejectionMessage == "" {
		return nil, apperrors.NewValidationError("rejection message required", nil)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CreatorID != creatorID {
		return nil, apperrors.NewForbidden("order belongs to another creator")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.NewInvalidState("order is not pending", map[string]any{
			"order_id": orderID,
			"status":   order.Status,
		})
	}
	return s.transition(ctx, order, domain.OrderStatusRejected, &rejectionMessage, creatorActor(creatorID), events.EventOrderRejected)
}

// SubmitDeliverables records the creator's files and moves the order to
// review. Valid only from accepted or in_progress, with at least one entry
// carrying a resolvable URL.
func (s *OrderService) SubmitDeliverables(ctx context.Context, creatorID, orderID string, inputs []DeliverableInput) (*domain.Order, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("at least one deliverable required", nil)
	}
	for _, input := range inputs {
		if !isResolvableURL(input.URL) {
			return nil, apperrors.NewValidationError("deliverable url must be absolute http(s)", map[string]any{
				"url": input.URL,
			})
		}
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CreatorID != creatorID {
		return nil, apperrors.NewForbidden("order belongs to another creator")
	}
	if order.Status != domain.OrderStatusAccepted && order.Status != domain.OrderStatusInProgress {
		return nil, apperrors.NewInvalidState("deliverables can only be submitted while accepted or in progress", map[string]any{
			"order_id": orderID,
			"status":   order.Status,
		})
	}

	records := make([]*domain.Deliverable, 0, len(inputs))
	urls := make([]string, 0, len(inputs))
	for _, input := range inputs {
		records = append(records, &domain.Deliverable{
			OrderID:   order.ID,
			URL:       input.URL,
			FileName:  input.FileName,
			FileType:  input.FileType,
			SizeBytes: input.SizeBytes,
		})
		urls = append(urls, input.URL)
	}

	// Inserts and the status compare-and-set commit together; a concurrent
	// transition leaves no deliverable rows behind.
	applied, err := s.deliverables.CreateBatchWithTransition(ctx, order.ID, records, order.Status, domain.OrderStatusReview)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.NewInvalidState("order changed concurrently", map[string]any{
			"order_id": order.ID,
			"expected": order.Status,
		})
	}

	oldStatus := order.Status
	order.Status = domain.OrderStatusReview
	order.UpdatedAt = time.Now()
	for _, record := range records {
		order.Deliverables = append(order.Deliverables, *record)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderStatusChanged,
		OrderID: order.ID,
		Actor:   creatorActor(creatorID),
		Payload: events.OrderStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.OrderStatusReview,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:    events.EventDeliverablesSubmitted,
		OrderID: order.ID,
		Actor:   creatorActor(creatorID),
		Payload: events.DeliverablesSubmittedPayload{
			Count: len(inputs),
			URLs:  urls,
		},
	})
	s.postSystemNote(ctx, order.ID, "creator submitted deliverables")
	return order, nil
}

// UpdateStatus is the brand/agent override path. It is still validated
// against the transition table; unknown or out-of-table transitions fail
// with a typed error instead of being written through.
func (s *OrderService) UpdateStatus(ctx context.Context, actor events.Actor, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	if _, known := allowedOrderTransitions[next]; !known {
		return nil, apperrors.NewValidationError("unknown order status", map[string]any{"status": next})
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if next == domain.OrderStatusRejected {
		return nil, apperrors.NewValidationError("use the reject operation to reject an order", nil)
	}
	if !isValidOrderTransition(order.Status, next) {
		return nil, apperrors.NewInvalidState("transition not allowed", map[string]any{
			"order_id": orderID,
			"from":     order.Status,
			"to":       next,
		})
	}
	return s.transition(ctx, order, next, nil, actor, events.EventOrderStatusChanged)
}

// CancelOrder cancels from any non-terminal state.
func (s *OrderService) CancelOrder(ctx context.Context, actor events.Actor, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, apperrors.NewInvalidState("order already in terminal state", map[string]any{
			"order_id": orderID,
			"status":   order.Status,
		})
	}
	return s.transition(ctx, order, domain.OrderStatusCancelled, nil, actor, events.EventOrderStatusChanged)
}

// transition applies a compare-and-set status change so a concurrent mutation
// surfaces as a conflict instead of a silent overwrite.
func (s *OrderService) transition(ctx context.Context, order *domain.Order, next domain.OrderStatus, rejectionMessage *string, actor events.Actor, eventType events.EventType) (*domain.Order, error) {
	applied, err := s.orders.UpdateStatusIfCurrent(ctx, order.ID, order.Status, next, rejectionMessage)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.NewInvalidState("order changed concurrently", map[string]any{
			"order_id": order.ID,
			"expected": order.Status,
		})
	}
	oldStatus := order.Status
	order.Status = next
	order.RejectionMessage = rejectionMessage
	order.UpdatedAt = time.Now()

	s.publishEvent(ctx, events.Event{
		Type:    eventType,
		OrderID: order.ID,
		Actor:   actor,
		Payload: events.OrderStatusChangedPayload{
			OldStatus:        oldStatus,
			NewStatus:        next,
			RejectionMessage: rejectionMessage,
		},
	})
	return order, nil
}

// postSystemNote drops a system message on the order's ticket when one exists.
func (s *OrderService) postSystemNote(ctx context.Context, orderID, body string) {
	if s.tickets == nil || s.messages == nil {
		return
	}
	ticket, err := s.tickets.GetByOrderID(ctx, orderID)
	if err != nil {
		return
	}
	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		SenderRole:  domain.SenderRoleSystem,
		Channel:     domain.ChannelBrandAgent,
		MessageType: domain.MessageTypeText,
		Body:        body,
	}
	_ = s.messages.Create(ctx, msg)
}

func (s *OrderService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func isResolvableURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func creatorActor(accountID string) events.Actor {
	return events.Actor{
		Type:      domain.SubjectTypeAccount,
		AccountID: &accountID,
	}
}

// AccountActor builds an event actor for a brand or creator principal.
func AccountActor(accountID string) events.Actor {
	return creatorActor(accountID)
}

// AgentActor builds an event actor for a support agent.
func AgentActor(agentID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAgent,
		AgentID: &agentID,
	}
}
