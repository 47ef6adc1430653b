package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

func newLoyaltyFixture(rules *fakeRuleRepo, customers *fakeCustomerRepo) *LoyaltyService {
	if customers == nil {
		customers = newFakeCustomerRepo()
	}
	return NewLoyaltyService(LoyaltyDependencies{
		RuleRepo:     rules,
		CustomerRepo: customers,
		Logger:       zap.NewNop(),
	})
}

func TestCreateRuleRejectsBadInput(t *testing.T) {
	svc := newLoyaltyFixture(newFakeRuleRepo(), nil)

	_, err := svc.CreateRule(context.Background(), LoyaltyRuleInput{MinTotalSpend: -1, PriorityLevel: domain.PriorityPriority})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.CreateRule(context.Background(), LoyaltyRuleInput{MinTotalSpend: 100, PriorityLevel: domain.PriorityStandard})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestCreateRuleOrderingViolationLeavesStoreUnchanged(t *testing.T) {
	rules := newFakeRuleRepo(domain.SupportPriorityLoyaltyRule{
		ID: "rule-priority", MinTotalSpend: 500000, PriorityLevel: domain.PriorityPriority, IsActive: true,
	})
	svc := newLoyaltyFixture(rules, nil)

	// A VIP threshold equal to the PRIORITY threshold breaks strict ordering.
	_, err := svc.CreateRule(context.Background(), LoyaltyRuleInput{
		MinTotalSpend: 500000, PriorityLevel: domain.PriorityVIP, IsActive: true,
	})
	assert.Equal(t, "PRIORITY_ORDERING_VIOLATION", apperrors.CodeOf(err))

	stored, err := svc.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "rule-priority", stored[0].ID)
}

func TestCreateRuleAcceptsStrictOrdering(t *testing.T) {
	rules := newFakeRuleRepo(domain.SupportPriorityLoyaltyRule{
		ID: "rule-priority", MinTotalSpend: 500000, PriorityLevel: domain.PriorityPriority, IsActive: true,
	})
	svc := newLoyaltyFixture(rules, nil)

	rule, err := svc.CreateRule(context.Background(), LoyaltyRuleInput{
		MinTotalSpend: 500001, PriorityLevel: domain.PriorityVIP, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityVIP, rule.PriorityLevel)
}

func TestDuplicateActiveLevelRejected(t *testing.T) {
	rules := newFakeRuleRepo(domain.SupportPriorityLoyaltyRule{
		ID: "rule-vip", MinTotalSpend: 900000, PriorityLevel: domain.PriorityVIP, IsActive: true,
	})
	svc := newLoyaltyFixture(rules, nil)

	_, err := svc.CreateRule(context.Background(), LoyaltyRuleInput{
		MinTotalSpend: 950000, PriorityLevel: domain.PriorityVIP, IsActive: true,
	})
	assert.Equal(t, "PRIORITY_ORDERING_VIOLATION", apperrors.CodeOf(err))

	// An inactive duplicate is fine until someone tries to activate it.
	dormant, err := svc.CreateRule(context.Background(), LoyaltyRuleInput{
		MinTotalSpend: 950000, PriorityLevel: domain.PriorityVIP, IsActive: false,
	})
	require.NoError(t, err)

	_, err = svc.ToggleRule(context.Background(), dormant.ID)
	assert.Equal(t, "PRIORITY_ORDERING_VIOLATION", apperrors.CodeOf(err))
}

func TestResolvePriorityLevelThresholds(t *testing.T) {
	rules := newFakeRuleRepo(
		domain.SupportPriorityLoyaltyRule{ID: "r1", MinTotalSpend: 100000, PriorityLevel: domain.PriorityPriority, IsActive: true},
		domain.SupportPriorityLoyaltyRule{ID: "r2", MinTotalSpend: 1000000, PriorityLevel: domain.PriorityVIP, IsActive: true},
	)
	svc := newLoyaltyFixture(rules, nil)

	cases := []struct {
		spend int64
		want  domain.PriorityLevel
	}{
		{0, domain.PriorityStandard},
		{99999, domain.PriorityStandard},
		{100000, domain.PriorityPriority},
		{999999, domain.PriorityPriority},
		{1000000, domain.PriorityVIP},
		{5000000, domain.PriorityVIP},
	}
	prev := domain.PriorityStandard
	for _, tc := range cases {
		level, err := svc.ResolvePriorityLevel(context.Background(), tc.spend)
		require.NoError(t, err)
		assert.Equal(t, tc.want, level, "spend %d", tc.spend)
		assert.GreaterOrEqual(t, int(level), int(prev), "level must not decrease with spend")
		prev = level
	}
}

func TestResolveForCustomerTakesPlanMaximum(t *testing.T) {
	rules := newFakeRuleRepo(
		domain.SupportPriorityLoyaltyRule{ID: "r1", MinTotalSpend: 100000, PriorityLevel: domain.PriorityPriority, IsActive: true},
	)
	customers := newFakeCustomerRepo(
		domain.Customer{ID: "cust-low", TotalSpend: 0},
		domain.Customer{ID: "cust-spender", TotalSpend: 200000},
	)
	customers.planLevels["cust-low"] = domain.PriorityVIP
	svc := newLoyaltyFixture(rules, customers)

	// Plan outranks spend-derived level.
	level, err := svc.ResolveForCustomer(context.Background(), "cust-low")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityVIP, level)

	// Spend-derived level stands without a plan.
	level, err = svc.ResolveForCustomer(context.Background(), "cust-spender")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityPriority, level)

	_, err = svc.ResolveForCustomer(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestRemoveRuleLoosensResolution(t *testing.T) {
	rules := newFakeRuleRepo(
		domain.SupportPriorityLoyaltyRule{ID: "r1", MinTotalSpend: 100000, PriorityLevel: domain.PriorityPriority, IsActive: true},
	)
	svc := newLoyaltyFixture(rules, nil)

	level, err := svc.ResolvePriorityLevel(context.Background(), 150000)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityPriority, level)

	require.NoError(t, svc.RemoveRule(context.Background(), "r1"))

	level, err = svc.ResolvePriorityLevel(context.Background(), 150000)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityStandard, level)

	err = svc.RemoveRule(context.Background(), "r1")
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}
