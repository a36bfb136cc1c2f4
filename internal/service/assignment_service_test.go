package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

func newAssignmentService(tickets *fakeTicketRepo, agents *fakeAgentRepo) (*AssignmentService, *fakeHistoryRepo) {
	history := &fakeHistoryRepo{}
	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo:  tickets,
		AgentRepo:   agents,
		HistoryRepo: history,
		Dispatcher:  events.NewInMemoryDispatcher(nil),
	})
	return svc, history
}

func TestSelfAssignClaimsTicket(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", Active: true}
	tickets := newFakeTicketRepo(&domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen})
	svc, history := newAssignmentService(tickets, newFakeAgentRepo(agent))

	ticket, err := svc.SelfAssignTicket(context.Background(), agent, "t-1")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-1", *ticket.AssignedAgentID)
	require.Len(t, history.entries, 1)
	assert.Equal(t, domain.ChangeTypeAssignee, history.entries[0].ChangeType)
}

func TestAssignToInactiveAgentRejected(t *testing.T) {
	actor := &domain.Agent{ID: "agent-1", Active: true}
	inactive := &domain.Agent{ID: "agent-2", Active: false}
	tickets := newFakeTicketRepo(&domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen})
	svc, _ := newAssignmentService(tickets, newFakeAgentRepo(actor, inactive))

	_, err := svc.AssignTicketToAgent(context.Background(), actor, "t-1", "agent-2")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestAssignClosedTicketRejected(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", Active: true}
	tickets := newFakeTicketRepo(&domain.Ticket{ID: "t-1", Status: domain.TicketStatusClosed})
	svc, _ := newAssignmentService(tickets, newFakeAgentRepo(agent))

	_, err := svc.SelfAssignTicket(context.Background(), agent, "t-1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}

func TestAutoAssignPicksLeastLoadedAgent(t *testing.T) {
	busy := &domain.Agent{ID: "agent-busy", Active: true}
	idle := &domain.Agent{ID: "agent-idle", Active: true}
	inactive := &domain.Agent{ID: "agent-off", Active: false}
	agents := newFakeAgentRepo(busy, idle, inactive)
	agents.openTickets["agent-busy"] = 5
	agents.openTickets["agent-idle"] = 1

	tickets := newFakeTicketRepo(&domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen})
	svc, _ := newAssignmentService(tickets, agents)

	ticket, err := svc.AutoAssignTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgentID)
	assert.Equal(t, "agent-idle", *ticket.AssignedAgentID)
}

func TestAutoAssignWithoutActiveAgents(t *testing.T) {
	tickets := newFakeTicketRepo(&domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen})
	svc, _ := newAssignmentService(tickets, newFakeAgentRepo())

	_, err := svc.AutoAssignTicket(context.Background(), "t-1")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}
