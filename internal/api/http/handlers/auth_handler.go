package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/creatorlane/marketplace/internal/api/dto"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/service"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// AuthHandler manages login and identity endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}
	account, token, exp, err := h.service.RegisterAccount(c.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Profile: dto.Profile{
			ID:    account.ID,
			Name:  account.Name,
			Email: account.Email,
			Role:  string(account.Role),
		},
	}})
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, token, exp, err := h.service.LoginAccount(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Profile: dto.Profile{
			ID:    account.ID,
			Name:  account.Name,
			Email: account.Email,
			Role:  string(account.Role),
		},
	}})
}

// AgentLogin POST /api/auth/agent-login.
func (h *AuthHandler) AgentLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, token, exp, err := h.service.LoginAgent(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Profile: dto.Profile{
			ID:    agent.ID,
			Name:  agent.Name,
			Email: agent.Email,
			Role:  "agent",
		},
	}})
}

// Me GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	profile := dto.Profile{}
	if principal.Agent != nil {
		profile = dto.Profile{
			ID:    principal.Agent.ID,
			Name:  principal.Agent.Name,
			Email: principal.Agent.Email,
			Role:  "agent",
		}
	} else if principal.Account != nil {
		profile = dto.Profile{
			ID:    principal.Account.ID,
			Name:  principal.Account.Name,
			Email: principal.Account.Email,
			Role:  string(principal.Account.Role),
		}
	}
	return c.JSON(fiber.Map{"data": profile})
}
