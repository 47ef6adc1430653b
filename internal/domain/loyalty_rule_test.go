package domain

import "testing"

func rule(id string, spend int64, level PriorityLevel) SupportPriorityLoyaltyRule {
	return SupportPriorityLoyaltyRule{ID: id, MinTotalSpend: spend, PriorityLevel: level, IsActive: true}
}

func TestValidateRuleOrdering(t *testing.T) {
	tests := []struct {
		name    string
		active  []SupportPriorityLoyaltyRule
		wantErr bool
	}{
		{"empty set", nil, false},
		{"single priority rule", []SupportPriorityLoyaltyRule{rule("a", 100, PriorityPriority)}, false},
		{"single vip rule", []SupportPriorityLoyaltyRule{rule("a", 100, PriorityVIP)}, false},
		{"strictly ordered pair", []SupportPriorityLoyaltyRule{
			rule("a", 100, PriorityPriority), rule("b", 101, PriorityVIP),
		}, false},
		{"equal thresholds", []SupportPriorityLoyaltyRule{
			rule("a", 500000, PriorityPriority), rule("b", 500000, PriorityVIP),
		}, true},
		{"inverted thresholds", []SupportPriorityLoyaltyRule{
			rule("a", 1000, PriorityPriority), rule("b", 500, PriorityVIP),
		}, true},
		{"duplicate level", []SupportPriorityLoyaltyRule{
			rule("a", 100, PriorityVIP), rule("b", 200, PriorityVIP),
		}, true},
		{"standard level not configurable", []SupportPriorityLoyaltyRule{
			rule("a", 100, PriorityStandard),
		}, true},
		{"negative threshold", []SupportPriorityLoyaltyRule{
			rule("a", -1, PriorityPriority),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleOrdering(tt.active)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRuleOrdering() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveLevelFromRules(t *testing.T) {
	active := []SupportPriorityLoyaltyRule{
		rule("a", 100, PriorityPriority),
		rule("b", 1000, PriorityVIP),
	}

	tests := []struct {
		spend int64
		want  PriorityLevel
	}{
		{0, PriorityStandard},
		{99, PriorityStandard},
		{100, PriorityPriority},
		{999, PriorityPriority},
		{1000, PriorityVIP},
		{1_000_000, PriorityVIP},
	}
	for _, tt := range tests {
		if got := ResolveLevelFromRules(active, tt.spend); got != tt.want {
			t.Errorf("ResolveLevelFromRules(%d) = %v, want %v", tt.spend, got, tt.want)
		}
	}
}

func TestResolveLevelIgnoresInactiveRules(t *testing.T) {
	inactive := rule("a", 100, PriorityVIP)
	inactive.IsActive = false
	if got := ResolveLevelFromRules([]SupportPriorityLoyaltyRule{inactive}, 500); got != PriorityStandard {
		t.Errorf("inactive rule resolved to %v, want STANDARD", got)
	}
}
