package sla

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

type stubRuleSource struct {
	rules map[string]*domain.SLARule
}

func cellKey(severity domain.TicketSeverity, level domain.PriorityLevel) string {
	return string(severity) + "/" + level.String()
}

func (s *stubRuleSource) Resolve(_ context.Context, severity domain.TicketSeverity, level domain.PriorityLevel) (*domain.SLARule, error) {
	rule, ok := s.rules[cellKey(severity, level)]
	if !ok {
		return nil, apperrors.ErrNoRuleConfigured
	}
	return rule, nil
}

func TestResolverDeadlines(t *testing.T) {
	source := &stubRuleSource{rules: map[string]*domain.SLARule{
		cellKey(domain.TicketSeverityHigh, domain.PriorityPriority): {
			Severity:         domain.TicketSeverityHigh,
			PriorityLevel:    domain.PriorityPriority,
			FirstResponseSLA: 2 * time.Hour,
			ResolutionSLA:    24 * time.Hour,
		},
	}}
	resolver := NewResolver(source, Defaults{FirstResponse: 8 * time.Hour, Resolution: 72 * time.Hour}, zap.NewNop())

	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	frDue, resDue, err := resolver.Deadlines(context.Background(), domain.TicketSeverityHigh, domain.PriorityPriority, createdAt)
	if err != nil {
		t.Fatalf("Deadlines: %v", err)
	}
	if want := createdAt.Add(2 * time.Hour); !frDue.Equal(want) {
		t.Errorf("first response due = %v, want %v", frDue, want)
	}
	if want := createdAt.Add(24 * time.Hour); !resDue.Equal(want) {
		t.Errorf("resolution due = %v, want %v", resDue, want)
	}
}

func TestResolverMatrixGapFallsBack(t *testing.T) {
	resolver := NewResolver(&stubRuleSource{rules: map[string]*domain.SLARule{}},
		Defaults{FirstResponse: 8 * time.Hour, Resolution: 72 * time.Hour}, zap.NewNop())

	firstResponse, resolution, err := resolver.Durations(context.Background(), domain.TicketSeverityLow, domain.PriorityStandard)
	if err != nil {
		t.Fatalf("gap must not surface an error, got %v", err)
	}
	if firstResponse != 8*time.Hour || resolution != 72*time.Hour {
		t.Errorf("fallback pair = (%v, %v), want (8h, 72h)", firstResponse, resolution)
	}
}
