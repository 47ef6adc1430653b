package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// LoyaltyRuleRequest payload for create and update.
type LoyaltyRuleRequest struct {
	MinTotalSpend int64                `json:"min_total_spend"`
	PriorityLevel domain.PriorityLevel `json:"priority_level"`
	IsActive      bool                 `json:"is_active"`
}

// LoyaltyRuleResponse wire shape.
type LoyaltyRuleResponse struct {
	ID            string               `json:"id"`
	MinTotalSpend int64                `json:"min_total_spend"`
	PriorityLevel domain.PriorityLevel `json:"priority_level"`
	PriorityName  string               `json:"priority_name"`
	IsActive      bool                 `json:"is_active"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ResolveLevelResponse reports the level a spend amount maps to.
type ResolveLevelResponse struct {
	TotalSpend    int64                `json:"total_spend"`
	PriorityLevel domain.PriorityLevel `json:"priority_level"`
	PriorityName  string               `json:"priority_name"`
}

// NewLoyaltyRuleResponse maps a domain rule to its wire shape.
func NewLoyaltyRuleResponse(rule *domain.SupportPriorityLoyaltyRule) LoyaltyRuleResponse {
	return LoyaltyRuleResponse{
		ID:            rule.ID,
		MinTotalSpend: rule.MinTotalSpend,
		PriorityLevel: rule.PriorityLevel,
		PriorityName:  rule.PriorityLevel.String(),
		IsActive:      rule.IsActive,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}
