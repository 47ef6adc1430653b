package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// RulesHandler manages the priority loyalty rule store.
type RulesHandler struct {
	loyalty *service.LoyaltyService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(loyalty *service.LoyaltyService) *RulesHandler {
	return &RulesHandler{loyalty: loyalty}
}

// ListRules GET /admin/loyalty-rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.loyalty.ListRules(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.LoyaltyRuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.NewLoyaltyRuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRule GET /admin/loyalty-rules/:id.
func (h *RulesHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.loyalty.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLoyaltyRuleResponse(rule)})
}

// CreateRule POST /admin/loyalty-rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	var req dto.LoyaltyRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.loyalty.CreateRule(c.Context(), service.LoyaltyRuleInput{
		MinTotalSpend: req.MinTotalSpend,
		PriorityLevel: req.PriorityLevel,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewLoyaltyRuleResponse(rule)})
}

// UpdateRule PUT /admin/loyalty-rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.LoyaltyRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.loyalty.UpdateRule(c.Context(), c.Params("id"), service.LoyaltyRuleInput{
		MinTotalSpend: req.MinTotalSpend,
		PriorityLevel: req.PriorityLevel,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLoyaltyRuleResponse(rule)})
}

// ToggleRule POST /admin/loyalty-rules/:id/toggle.
func (h *RulesHandler) ToggleRule(c *fiber.Ctx) error {
	rule, err := h.loyalty.ToggleRule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLoyaltyRuleResponse(rule)})
}

// RemoveRule DELETE /admin/loyalty-rules/:id.
func (h *RulesHandler) RemoveRule(c *fiber.Ctx) error {
	if err := h.loyalty.RemoveRule(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResolveLevel GET /admin/loyalty-rules/resolve?total_spend=N.
func (h *RulesHandler) ResolveLevel(c *fiber.Ctx) error {
	raw := c.Query("total_spend")
	spend, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || spend < 0 {
		return apperrors.NewValidationError("total_spend must be a non-negative integer", map[string]any{"total_spend": raw})
	}
	level, err := h.loyalty.ResolvePriorityLevel(c.Context(), spend)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolveLevelResponse{
		TotalSpend:    spend,
		PriorityLevel: level,
		PriorityName:  level.String(),
	}})
}
