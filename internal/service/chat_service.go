package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/creatorlane/marketplace/internal/chat"
	"github.com/creatorlane/marketplace/internal/events"
	"github.com/creatorlane/marketplace/internal/repository"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// ChatService mediates between the API and the hosted chat provider: token
// issuance, per-ticket channel membership, and realtime fanout.
type ChatService struct {
	gateway    *chat.Gateway
	registry   *chat.ChannelRegistry
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ChatDependencies bundles chat service collaborators.
type ChatDependencies struct {
	Gateway    *chat.Gateway
	Registry   *chat.ChannelRegistry
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewChatService builds the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		gateway:    deps.Gateway,
		registry:   deps.Registry,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Token returns a chat session token for the caller, reusing a cached one
// when the provider issued it recently.
func (s *ChatService) Token(ctx context.Context, principal Principal) (string, time.Time, error) {
	if !s.gateway.Enabled() {
		return "", time.Time{}, apperrors.NewConflict("chat provider not configured", nil)
	}
	compositeID := chat.CompositeUserID(principal.Role, principal.SubjectID())

	if cached, cachedExpiry, err := s.registry.CachedToken(ctx, compositeID); err == nil && cached != "" {
		return cached, cachedExpiry, nil
	}

	token, expiresAt, err := s.gateway.ConnectUser(ctx, principal.Role, principal.SubjectID())
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.registry.CacheToken(ctx, compositeID, token, expiresAt); err != nil {
		s.logger.Warn("unable to cache chat token", zap.Error(err))
	}
	return token, expiresAt, nil
}

// Join adds the caller to the ticket's channel after an access check.
func (s *ChatService) Join(ctx context.Context, principal Principal, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if !principal.CanAccessTicket(ticket) {
		return apperrors.NewForbidden("access denied")
	}

	compositeID := chat.CompositeUserID(principal.Role, principal.SubjectID())
	member, err := s.registry.IsMember(ctx, chat.ChannelName(ticketID), compositeID)
	if err != nil {
		return err
	}
	if !member && s.gateway.Enabled() {
		if err := s.gateway.JoinChannel(ctx, ticketID, principal.Role, principal.SubjectID()); err != nil {
			return err
		}
	}
	return s.registry.AddMember(ctx, chat.ChannelName(ticketID), compositeID)
}

// Leave removes the caller from the ticket's channel.
func (s *ChatService) Leave(ctx context.Context, principal Principal, ticketID string) error {
	if s.gateway.Enabled() {
		if err := s.gateway.LeaveChannel(ctx, ticketID, principal.Role, principal.SubjectID()); err != nil {
			return err
		}
	}
	compositeID := chat.CompositeUserID(principal.Role, principal.SubjectID())
	return s.registry.RemoveMember(ctx, chat.ChannelName(ticketID), compositeID)
}

// History lists recent provider messages on the ticket's channel after an
// access check. Realtime clients use it to backfill state before the socket
// delivers live frames.
func (s *ChatService) History(ctx context.Context, principal Principal, ticketID string, limit int) ([]chat.GatewayMessage, error) {
	if !s.gateway.Enabled() {
		return nil, apperrors.NewConflict("chat provider not configured", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !principal.CanAccessTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return s.gateway.GetMessages(ctx, chat.ChannelName(ticketID), limit)
}

// Channels lists the provider channels the caller belongs to.
func (s *ChatService) Channels(ctx context.Context, principal Principal) ([]string, error) {
	if !s.gateway.Enabled() {
		return nil, apperrors.NewConflict("chat provider not configured", nil)
	}
	return s.gateway.GetUserChannels(ctx, principal.Role, principal.SubjectID())
}

// RegisterHandlers subscribes to message events so new messages are mirrored
// into the provider channel for realtime delivery.
func (s *ChatService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketMessageAdded, s.handleMessageAdded)
}

func (s *ChatService) handleMessageAdded(ctx context.Context, event events.Event) error {
	if !s.gateway.Enabled() {
		return nil
	}
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok {
		return nil
	}
	senderID := actorSubjectID(event.Actor)
	meta := chat.MessageMeta{
		SenderRole:  payload.SenderRole,
		ChannelType: payload.Channel,
		ClientRef:   payload.ClientRef,
	}
	if _, err := s.gateway.SendMessage(ctx, chat.ChannelName(event.TicketID), payload.Body, senderID, meta); err != nil {
		s.logger.Warn("chat mirror failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}

func actorSubjectID(actor events.Actor) string {
	if actor.AgentID != nil {
		return *actor.AgentID
	}
	if actor.AccountID != nil {
		return *actor.AccountID
	}
	return ""
}
