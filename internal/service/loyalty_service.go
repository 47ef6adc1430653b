package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

const (
	priorityCacheTTL    = 5 * time.Minute
	priorityCacheGenKey = "loyalty:rules:gen"
)

// LoyaltyService maintains the spend-to-priority rule set and resolves a
// customer's effective priority level. Resolution results are cached in
// Redis under a generation key bumped on every rule mutation, so a mutation
// invalidates all cached levels at once.
type LoyaltyService struct {
	rules     repository.LoyaltyRuleRepository
	customers repository.CustomerRepository
	cache     *redis.Client
	logger    *zap.Logger
}

// LoyaltyDependencies bundles collaborators.
type LoyaltyDependencies struct {
	RuleRepo     repository.LoyaltyRuleRepository
	CustomerRepo repository.CustomerRepository
	Cache        *redis.Client
	Logger       *zap.Logger
}

// LoyaltyRuleInput describes rule create/update payloads.
type LoyaltyRuleInput struct {
	MinTotalSpend int64
	PriorityLevel domain.PriorityLevel
	IsActive      bool
}

// NewLoyaltyService constructs the service.
func NewLoyaltyService(deps LoyaltyDependencies) *LoyaltyService {
	return &LoyaltyService{
		rules:     deps.RuleRepo,
		customers: deps.CustomerRepo,
		cache:     deps.Cache,
		logger:    deps.Logger,
	}
}

// ListRules returns all rules, active and inactive.
func (s *LoyaltyService) ListRules(ctx context.Context) ([]domain.SupportPriorityLoyaltyRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// GetRule fetches a single rule.
func (s *LoyaltyService) GetRule(ctx context.Context, ruleID string) (*domain.SupportPriorityLoyaltyRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("loyalty rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// CreateRule inserts a rule; activating inserts re-validate the ordering
// invariant atomically in the repository transaction.
func (s *LoyaltyService) CreateRule(ctx context.Context, input LoyaltyRuleInput) (*domain.SupportPriorityLoyaltyRule, error) {
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}
	rule := &domain.SupportPriorityLoyaltyRule{
		MinTotalSpend: input.MinTotalSpend,
		PriorityLevel: input.PriorityLevel,
		IsActive:      input.IsActive,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.bumpCacheGeneration(ctx)
	return rule, nil
}

// UpdateRule rewrites a rule's threshold, level and active flag.
func (s *LoyaltyService) UpdateRule(ctx context.Context, ruleID string, input LoyaltyRuleInput) (*domain.SupportPriorityLoyaltyRule, error) {
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}
	rule := &domain.SupportPriorityLoyaltyRule{
		ID:            ruleID,
		MinTotalSpend: input.MinTotalSpend,
		PriorityLevel: input.PriorityLevel,
		IsActive:      input.IsActive,
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("loyalty rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}
	s.bumpCacheGeneration(ctx)
	return s.GetRule(ctx, ruleID)
}

// ToggleRule flips a rule's active flag.
func (s *LoyaltyService) ToggleRule(ctx context.Context, ruleID string) (*domain.SupportPriorityLoyaltyRule, error) {
	rule, err := s.rules.Toggle(ctx, ruleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("loyalty rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}
	s.bumpCacheGeneration(ctx)
	return rule, nil
}

// RemoveRule deletes a rule outright.
func (s *LoyaltyService) RemoveRule(ctx context.Context, ruleID string) error {
	if err := s.rules.Remove(ctx, ruleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("loyalty rule", map[string]any{"rule_id": ruleID})
		}
		return apperrors.MapError(err)
	}
	s.bumpCacheGeneration(ctx)
	return nil
}

// ResolvePriorityLevel maps a cumulative spend through the active rules.
func (s *LoyaltyService) ResolvePriorityLevel(ctx context.Context, totalSpend int64) (domain.PriorityLevel, error) {
	active, err := s.rules.ListActive(ctx)
	if err != nil {
		return domain.PriorityStandard, apperrors.MapError(err)
	}
	return domain.ResolveLevelFromRules(active, totalSpend), nil
}

// ResolveForCustomer returns the customer's effective level: the maximum of
// the loyalty-rule-derived level and the active support-plan level.
func (s *LoyaltyService) ResolveForCustomer(ctx context.Context, customerID string) (domain.PriorityLevel, error) {
	if level, ok := s.cachedLevel(ctx, customerID); ok {
		return level, nil
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PriorityStandard, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return domain.PriorityStandard, apperrors.MapError(err)
	}
	level, err := s.ResolvePriorityLevel(ctx, customer.TotalSpend)
	if err != nil {
		return domain.PriorityStandard, err
	}
	planLevel, err := s.customers.GetActivePlanLevel(ctx, customerID)
	if err != nil {
		return domain.PriorityStandard, apperrors.MapError(err)
	}
	if planLevel > level {
		level = planLevel
	}

	s.storeLevel(ctx, customerID, level)
	return level, nil
}

func validateRuleInput(input LoyaltyRuleInput) error {
	if input.MinTotalSpend < 0 {
		return apperrors.NewValidationError("min_total_spend must be non-negative", nil)
	}
	if input.PriorityLevel != domain.PriorityPriority && input.PriorityLevel != domain.PriorityVIP {
		return apperrors.NewValidationError("priority_level must be 1 or 2",
			map[string]any{"priority_level": input.PriorityLevel})
	}
	return nil
}

func (s *LoyaltyService) cachedLevel(ctx context.Context, customerID string) (domain.PriorityLevel, bool) {
	if s.cache == nil {
		return domain.PriorityStandard, false
	}
	key, err := s.levelCacheKey(ctx, customerID)
	if err != nil {
		return domain.PriorityStandard, false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		return domain.PriorityStandard, false
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return domain.PriorityStandard, false
	}
	return domain.PriorityLevel(level), true
}

func (s *LoyaltyService) storeLevel(ctx context.Context, customerID string, level domain.PriorityLevel) {
	if s.cache == nil {
		return
	}
	key, err := s.levelCacheKey(ctx, customerID)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, int(level), priorityCacheTTL).Err(); err != nil {
		s.logger.Debug("priority cache store failed", zap.Error(err))
	}
}

func (s *LoyaltyService) levelCacheKey(ctx context.Context, customerID string) (string, error) {
	gen, err := s.cache.Get(ctx, priorityCacheGenKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return "", err
		}
		gen = "0"
	}
	return fmt.Sprintf("loyalty:level:%s:%s", gen, customerID), nil
}

func (s *LoyaltyService) bumpCacheGeneration(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, priorityCacheGenKey).Err(); err != nil {
		s.logger.Warn("priority cache invalidation failed", zap.Error(err))
	}
}
