package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	"github.com/creatorlane/marketplace/internal/repository"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

var allowedTicketTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTicketTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTicketTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketService coordinates support ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	orders     repository.OrderRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	OrderRepo   repository.OrderRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// MessageInput describes a new ticket message.
type MessageInput struct {
	Body      string
	Channel   domain.ChannelTag
	ClientRef *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		orders:     deps.OrderRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// OpenTicketForOrder creates the support ticket for an order, reusing the
// existing one when already present. One ticket per order.
func (s *TicketService) OpenTicketForOrder(ctx context.Context, orderID, subject string) (*domain.Ticket, error) {
	existing, err := s.tickets.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		OrderID:     order.ID,
		BrandID:     order.BrandID,
		CreatorID:   order.CreatorID,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		Subject:     strings.TrimSpace(subject),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		OrderID:  order.ID,
		Payload: events.TicketCreatedPayload{
			OrderID:  order.ID,
			Priority: ticket.Priority,
			Subject:  ticket.Subject,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets for the CRM view.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetTicket fetches one ticket ensuring the caller may see it.
func (s *TicketService) GetTicket(ctx context.Context, principal Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListMessages returns one logical sub-thread of the ticket conversation.
// Accounts are pinned to their own thread regardless of the requested channel.
func (s *TicketService) ListMessages(ctx context.Context, principal Principal, ticketID string, channel domain.ChannelTag) ([]domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if channel == "" {
		channel = domain.ChannelBrandAgent
	}
	if forced, ok := principal.ForcedChannel(); ok {
		channel = forced
	}

	msgs, err := s.messages.ListByTicketChannel(ctx, ticketID, channel)
	if err != nil {
		return nil, err
	}
	// the repository filter is by tag; drop mistagged opposite-party rows
	filtered := make([]domain.TicketMessage, 0, len(msgs))
	for _, msg := range msgs {
		if msg.VisibleOn(channel) {
			filtered = append(filtered, msg)
		}
	}
	return filtered, nil
}

// AddMessage appends a message to a ticket thread and echoes the client
// correlation ref so optimistic entries can be confirmed.
func (s *TicketService) AddMessage(ctx context.Context, principal Principal, ticketID string, input MessageInput) (*domain.TicketMessage, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	channel := input.Channel
	if channel == "" {
		channel = domain.ChannelBrandAgent
	}
	if forced, ok := principal.ForcedChannel(); ok {
		channel = forced
	}
	if channel != domain.ChannelBrandAgent && channel != domain.ChannelCreatorAgent {
		return nil, apperrors.NewValidationError("unknown channel type", map[string]any{"channel_type": channel})
	}

	senderID := principal.SubjectID()
	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		SenderRole:  principal.Role,
		SenderID:    &senderID,
		Channel:     channel,
		MessageType: domain.MessageTypeText,
		Body:        body,
		ClientRef:   input.ClientRef,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    principal.Actor(),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderRole:  msg.SenderRole,
			Channel:     msg.Channel,
			Body:        msg.Body,
			BodyPreview: stringPreview(msg.Body, 120),
			ClientRef:   derefString(msg.ClientRef),
		},
	})
	return msg, nil
}

// UpdateStatus changes ticket status by an agent.
func (s *TicketService) UpdateStatus(ctx context.Context, agent *domain.Agent, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTicketTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidState("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "comment": comment}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    AgentActor(agent.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority by an agent.
func (s *TicketService) UpdatePriority(ctx context.Context, agent *domain.Agent, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	switch newPriority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordChange(ctx, agent.ID, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    AgentActor(agent.ID),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// ListHistory returns audit entries for agents.
func (s *TicketService) ListHistory(ctx context.Context, agent *domain.Agent, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *TicketService) recordChange(ctx context.Context, agentID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByRole: domain.SenderRoleAgent,
		ChangedByID:   &agentID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	return s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// stringPreview truncates on rune boundaries so multibyte text is never cut
// mid-character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
