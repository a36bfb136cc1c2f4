package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	"github.com/creatorlane/marketplace/internal/repository"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	AgentRepo   repository.AgentRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// RegisterHandlers subscribes auto-assignment to ticket creation, so new
// tickets land on the least-loaded active agent.
func (s *AssignmentService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, event events.Event) error {
		_, err := s.AutoAssignTicket(ctx, event.TicketID)
		return err
	})
}

// SelfAssignTicket lets an agent claim a ticket.
func (s *AssignmentService) SelfAssignTicket(ctx context.Context, agent *domain.Agent, ticketID string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return s.assign(ctx, agent.ID, ticketID, agent.ID)
}

// AssignTicketToAgent assigns a ticket to the given agent.
func (s *AssignmentService) AssignTicketToAgent(ctx context.Context, actor *domain.Agent, ticketID, assigneeID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	assignee, err := s.agents.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"agent_id": assigneeID})
	}
	return s.assign(ctx, actor.ID, ticketID, assignee.ID)
}

// AutoAssignTicket picks the active agent with the fewest open tickets.
func (s *AssignmentService) AutoAssignTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	agents, err := s.agents.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(agents) == 0 {
		return nil, apperrors.NewConflict("no active agents available", nil)
	}

	var best *domain.Agent
	bestLoad := -1
	for i := range agents {
		load, err := s.agents.CountOpenTickets(ctx, agents[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if bestLoad < 0 || load < bestLoad {
			best = &agents[i]
			bestLoad = load
		}
	}
	return s.assign(ctx, best.ID, ticketID, best.ID)
}

func (s *AssignmentService) assign(ctx context.Context, actorAgentID, ticketID, assigneeID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidState("ticket closed", map[string]any{"ticket_id": ticketID})
	}

	oldAssignee := ticket.AssignedAgentID
	ticket.AssignedAgentID = &assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangedByRole: domain.SenderRoleAgent,
			ChangedByID:   &actorAgentID,
			ChangeType:    domain.ChangeTypeAssignee,
			OldValue:      map[string]any{"assigned_agent_id": oldAssignee},
			NewValue:      map[string]any{"assigned_agent_id": assigneeID},
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    AgentActor(actorAgentID),
			Payload: events.TicketAssignedPayload{
				AssignedAgentID: ticket.AssignedAgentID,
			},
		})
	}
	return ticket, nil
}
