package domain

import (
	"fmt"
	"time"
)

// SupportPriorityLoyaltyRule maps cumulative customer spend to a priority
// level. Only levels above STANDARD are expressed as rules; STANDARD is the
// implicit floor when no rule matches.
type SupportPriorityLoyaltyRule struct {
	ID            string
	MinTotalSpend int64
	PriorityLevel PriorityLevel
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateRuleOrdering checks the global invariant over a candidate active
// rule set: at most one active rule per level, and every active rule at a
// higher level must require strictly more spend than every active rule at a
// lower level. Inactive rules are ignored by callers.
func ValidateRuleOrdering(active []SupportPriorityLoyaltyRule) error {
	byLevel := make(map[PriorityLevel]*SupportPriorityLoyaltyRule, len(active))
	for i := range active {
		rule := &active[i]
		if rule.PriorityLevel != PriorityPriority && rule.PriorityLevel != PriorityVIP {
			return fmt.Errorf("rule %s: priority level %d is not configurable", rule.ID, rule.PriorityLevel)
		}
		if rule.MinTotalSpend < 0 {
			return fmt.Errorf("rule %s: min total spend must be non-negative", rule.ID)
		}
		if existing, ok := byLevel[rule.PriorityLevel]; ok {
			return fmt.Errorf("rules %s and %s both active at level %d", existing.ID, rule.ID, rule.PriorityLevel)
		}
		byLevel[rule.PriorityLevel] = rule
	}
	lower, hasLower := byLevel[PriorityPriority]
	higher, hasHigher := byLevel[PriorityVIP]
	if hasLower && hasHigher && higher.MinTotalSpend <= lower.MinTotalSpend {
		return fmt.Errorf("level %d threshold %d must exceed level %d threshold %d",
			PriorityVIP, higher.MinTotalSpend, PriorityPriority, lower.MinTotalSpend)
	}
	return nil
}

// ResolveLevelFromRules returns the highest level among active rules whose
// threshold is within totalSpend, or STANDARD when none match. Monotonic
// non-decreasing in totalSpend for a fixed rule set.
func ResolveLevelFromRules(active []SupportPriorityLoyaltyRule, totalSpend int64) PriorityLevel {
	level := PriorityStandard
	for _, rule := range active {
		if !rule.IsActive {
			continue
		}
		if rule.MinTotalSpend <= totalSpend && rule.PriorityLevel > level {
			level = rule.PriorityLevel
		}
	}
	return level
}
