package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/creatorlane/marketplace/internal/api/dto"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/service"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// OrdersHandler manages brand/creator order endpoints.
type OrdersHandler struct {
	orders  *service.OrderService
	tickets *service.TicketService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService, tickets *service.TicketService) *OrdersHandler {
	return &OrdersHandler{orders: orders, tickets: tickets}
}

// GetOrder GET /api/orders/:id.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	subject := domain.SubjectTypeAccount
	subjectID := ""
	if principal.Agent != nil {
		subject = domain.SubjectTypeAgent
		subjectID = principal.Agent.ID
	} else if principal.Account != nil {
		subjectID = principal.Account.ID
	}
	order, err := h.orders.GetOrder(c.Context(), subject, subjectID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// ListOrders GET /api/orders.
func (h *OrdersHandler) ListOrders(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}
	var statuses []domain.OrderStatus
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			statuses = append(statuses, domain.OrderStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	orders, err := h.orders.ListOrdersForAccount(c.Context(), principal.Account, statuses, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, orderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AcceptOrder PUT /api/orders/:id/accept.
func (h *OrdersHandler) AcceptOrder(c *fiber.Ctx) error {
	creator, err := requireCreator(c)
	if err != nil {
		return err
	}
	order, err := h.orders.AcceptOrder(c.Context(), creator.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// RejectOrder PUT /api/orders/:id/reject.
func (h *OrdersHandler) RejectOrder(c *fiber.Ctx) error {
	creator, err := requireCreator(c)
	if err != nil {
		return err
	}
	var req dto.RejectOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	order, err := h.orders.RejectOrder(c.Context(), creator.ID, c.Params("id"), req.RejectionMessage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// SubmitDeliverables POST /api/orders/:id/deliverables.
func (h *OrdersHandler) SubmitDeliverables(c *fiber.Ctx) error {
	creator, err := requireCreator(c)
	if err != nil {
		return err
	}
	var req dto.SubmitDeliverablesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	inputs := make([]service.DeliverableInput, 0, len(req.Deliverables))
	for _, d := range req.Deliverables {
		inputs = append(inputs, service.DeliverableInput{
			URL:       d.URL,
			FileName:  d.FileName,
			FileType:  d.FileType,
			SizeBytes: d.SizeBytes,
		})
	}
	order, err := h.orders.SubmitDeliverables(c.Context(), creator.ID, c.Params("id"), inputs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// UpdateStatus PUT /api/orders/:id/status. Brand override, still guarded by
// the transition table.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var actor = service.AccountActor("")
	switch {
	case principal.Agent != nil:
		actor = service.AgentActor(principal.Agent.ID)
	case principal.Account != nil && principal.Account.Role == domain.AccountRoleBrand:
		actor = service.AccountActor(principal.Account.ID)
	default:
		return apperrors.NewForbidden("brand or agent required")
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var order *domain.Order
	var err error
	if req.Status == domain.OrderStatusCancelled {
		order, err = h.orders.CancelOrder(c.Context(), actor, c.Params("id"))
	} else {
		order, err = h.orders.UpdateStatus(c.Context(), actor, c.Params("id"), req.Status)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// OpenTicket POST /api/orders/:id/ticket opens (or returns) the support
// ticket for the order.
func (h *OrdersHandler) OpenTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req struct {
		Subject string `json:"subject"`
	}
	_ = c.BodyParser(&req)

	orderID := c.Params("id")
	if principal.Account != nil {
		order, err := h.orders.GetOrder(c.Context(), domain.SubjectTypeAccount, principal.Account.ID, orderID)
		if err != nil {
			return err
		}
		orderID = order.ID
	}
	ticket, err := h.tickets.OpenTicketForOrder(c.Context(), orderID, req.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func requireCreator(c *fiber.Ctx) (*domain.Account, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return nil, apperrors.NewUnauthorized("account required")
	}
	if principal.Account.Role != domain.AccountRoleCreator {
		return nil, apperrors.NewForbidden("creator required")
	}
	return principal.Account, nil
}

func orderResponse(order *domain.Order) dto.OrderResponse {
	deliverables := make([]dto.DeliverableResponse, 0, len(order.Deliverables))
	for _, d := range order.Deliverables {
		deliverables = append(deliverables, dto.DeliverableResponse{
			ID:        d.ID,
			URL:       d.URL,
			FileName:  d.FileName,
			FileType:  d.FileType,
			SizeBytes: d.SizeBytes,
			CreatedAt: d.CreatedAt,
		})
	}
	return dto.OrderResponse{
		ID:                     order.ID,
		BrandID:                order.BrandID,
		CreatorID:              order.CreatorID,
		PackageID:              order.PackageID,
		Quantity:               order.Quantity,
		Currency:               order.Currency,
		TotalAmountCents:       order.TotalAmountCents,
		Status:                 order.Status,
		RejectionMessage:       order.RejectionMessage,
		AdditionalInstructions: order.AdditionalInstructions,
		ReferenceLinks:         order.ReferenceLinks,
		DeliveryEstimateDays:   order.DeliveryEstimateDays,
		Deliverables:           deliverables,
		CreatedAt:              order.CreatedAt,
		UpdatedAt:              order.UpdatedAt,
	}
}
