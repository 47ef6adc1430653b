package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// AuthHandler issues bearer tokens for staff and customers.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// StaffLogin POST /auth/staff/login.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	email, password, err := parseLogin(c)
	if err != nil {
		return err
	}
	result, err := h.auth.StaffLogin(c.Context(), email, password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt}})
}

// CustomerLogin POST /auth/customer/login.
func (h *AuthHandler) CustomerLogin(c *fiber.Ctx) error {
	email, password, err := parseLogin(c)
	if err != nil {
		return err
	}
	result, err := h.auth.CustomerLogin(c.Context(), email, password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt}})
}

func parseLogin(c *fiber.Ctx) (string, string, error) {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return "", "", apperrors.NewValidationError("invalid payload", nil)
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return "", "", apperrors.NewValidationError("email and password required", nil)
	}
	return email, req.Password, nil
}
