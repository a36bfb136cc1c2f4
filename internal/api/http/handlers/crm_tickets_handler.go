package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/creatorlane/marketplace/internal/api/dto"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/repository"
	"github.com/creatorlane/marketplace/internal/service"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// CRMTicketsHandler manages the agent-facing ticket endpoints.
type CRMTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	agents      repository.AgentRepository
}

// NewCRMTicketsHandler constructs handler.
func NewCRMTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, agents repository.AgentRepository) *CRMTicketsHandler {
	return &CRMTicketsHandler{tickets: tickets, assignments: assignments, agents: agents}
}

// ListTickets GET /api/crm/tickets.
func (h *CRMTicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/crm/tickets/:id.
func (h *CRMTicketsHandler) GetTicket(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.Context(), service.AgentPrincipal(agent), c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), agent, ticket.ID, 100, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// ListMessages GET /api/crm/tickets/:id/messages?channelType=. Agents pick
// the thread explicitly; brand and creator callers are pinned to their own.
func (h *CRMTicketsHandler) ListMessages(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	channel := domain.ChannelTag(c.Query("channelType"))
	msgs, err := h.tickets.ListMessages(c.Context(), principal, c.Params("id"), channel)
	if err != nil {
		return err
	}
	items := make([]dto.TicketMessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, ticketMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMessage POST /api/crm/tickets/:id/messages.
func (h *CRMTicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body()) == "" {
		return apperrors.NewValidationError("message_text required", nil)
	}
	msg, err := h.tickets.AddMessage(c.Context(), principal, c.Params("id"), service.MessageInput{
		Body:      req.Body(),
		Channel:   req.ChannelType,
		ClientRef: req.ClientRef,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// UpdateStatus PUT /api/crm/tickets/:id/status.
func (h *CRMTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.Context(), agent, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdatePriority PUT /api/crm/tickets/:id/priority.
func (h *CRMTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketPriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdatePriority(c.Context(), agent, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignTicket PUT /api/crm/tickets/:id/assign.
func (h *CRMTicketsHandler) AssignTicket(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var ticket *domain.Ticket
	if req.AgentID == "" || req.AgentID == agent.ID {
		ticket, err = h.assignments.SelfAssignTicket(c.Context(), agent, c.Params("id"))
	} else {
		ticket, err = h.assignments.AssignTicketToAgent(c.Context(), agent, c.Params("id"), req.AgentID)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListAgents GET /api/crm/agents.
func (h *CRMTicketsHandler) ListAgents(c *fiber.Ctx) error {
	if _, err := requireAgent(c); err != nil {
		return err
	}
	agents, err := h.agents.ListActive(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AgentSummary, 0, len(agents))
	for i := range agents {
		open, err := h.agents.CountOpenTickets(c.Context(), agents[i].ID)
		if err != nil {
			return err
		}
		items = append(items, dto.AgentSummary{
			ID:          agents[i].ID,
			Name:        agents[i].Name,
			Email:       agents[i].Email,
			Active:      agents[i].Active,
			OpenTickets: open,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func requireAgent(c *fiber.Ctx) (*domain.Agent, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal.Agent, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AssignedAgentID = &agentID
	}
	if orderID := c.Query("order_id"); orderID != "" {
		filter.OrderID = &orderID
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		ExternalKey:     ticket.ExternalKey,
		OrderID:         ticket.OrderID,
		BrandID:         ticket.BrandID,
		CreatorID:       ticket.CreatorID,
		AssignedAgentID: ticket.AssignedAgentID,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		Subject:         ticket.Subject,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistory) dto.TicketDetailResponse {
	entries := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByRole: entry.ChangedByRole,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		History:       entries,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		TicketID:    msg.TicketID,
		SenderRole:  msg.SenderRole,
		SenderID:    msg.SenderID,
		ChannelType: msg.EffectiveChannel(),
		MessageType: msg.MessageType,
		Body:        msg.Body,
		ClientRef:   msg.ClientRef,
		CreatedAt:   msg.CreatedAt,
	}
}
