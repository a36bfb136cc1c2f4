package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/creatorlane/marketplace/internal/api/dto"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/chat"
	"github.com/creatorlane/marketplace/internal/service"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// ChatHandler exposes the realtime chat gateway endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chatService}
}

// Token GET /api/chat/token issues (or returns a cached) gateway session
// token for the authenticated principal.
func (h *ChatHandler) Token(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.chat.Token(c.Context(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChatTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}})
}

// Join POST /api/chat/tickets/:id/join.
func (h *ChatHandler) Join(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("id")
	if err := h.chat.Join(c.Context(), principal, ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"channel_id": chat.ChannelName(ticketID),
		"joined":     true,
	}})
}

// Leave POST /api/chat/tickets/:id/leave.
func (h *ChatHandler) Leave(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	ticketID := c.Params("id")
	if err := h.chat.Leave(c.Context(), principal, ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"channel_id": chat.ChannelName(ticketID),
		"joined":     false,
	}})
}

// History GET /api/chat/tickets/:id/messages lists recent gateway messages on
// the ticket's channel.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	messages, err := h.chat.History(c.Context(), principal, c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []chat.GatewayMessage{}
	}
	return c.JSON(fiber.Map{"data": messages})
}

// Channels GET /api/chat/channels lists the caller's gateway channels.
func (h *ChatHandler) Channels(c *fiber.Ctx) error {
	principal, err := servicePrincipal(c)
	if err != nil {
		return err
	}
	channels, err := h.chat.Channels(c.Context(), principal)
	if err != nil {
		return err
	}
	if channels == nil {
		channels = []string{}
	}
	return c.JSON(fiber.Map{"data": channels})
}

func servicePrincipal(c *fiber.Ctx) (service.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	if principal.Agent != nil {
		return service.AgentPrincipal(principal.Agent), nil
	}
	if principal.Account != nil {
		return service.AccountPrincipal(principal.Account), nil
	}
	return service.Principal{}, apperrors.NewUnauthorized("authentication required")
}
