package sla

import (
	"testing"
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

func TestClockStatus(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:                 "t-1",
		Status:             domain.TicketStatusInProgress,
		Severity:           domain.TicketSeverityHigh,
		PriorityLevel:      domain.PriorityPriority,
		CreatedAt:          createdAt,
		FirstResponseDueAt: createdAt.Add(2 * time.Hour),
		ResolutionDueAt:    createdAt.Add(24 * time.Hour),
	}
	clock := NewClock(0.20)

	tests := []struct {
		name string
		at   time.Duration
		want domain.SLAStatus
	}{
		{"fresh", 1 * time.Hour, domain.SLAStatusOK},
		{"before window", 19 * time.Hour, domain.SLAStatusOK},
		{"inside warning window", 23 * time.Hour, domain.SLAStatusWarning},
		{"just before due", 24*time.Hour - time.Minute, domain.SLAStatusWarning},
		{"past due", 25 * time.Hour, domain.SLAStatusOverdue},
	}
	for _, tt := range tests {
		got := clock.Status(ticket, createdAt.Add(tt.at))
		if got != tt.want {
			t.Errorf("%s: Status = %s, want %s", tt.name, got, tt.want)
		}
	}

	// Resolution pins the label to OK even after the deadline.
	resolvedAt := createdAt.Add(26 * time.Hour)
	ticket.ResolvedAt = &resolvedAt
	if got := clock.Status(ticket, createdAt.Add(30*time.Hour)); got != domain.SLAStatusOK {
		t.Errorf("resolved ticket: Status = %s, want OK", got)
	}
}

func TestClockFirstResponseStatus(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		CreatedAt:          createdAt,
		FirstResponseDueAt: createdAt.Add(2 * time.Hour),
	}
	clock := NewClock(0.20)

	if got := clock.FirstResponseStatus(ticket, createdAt.Add(time.Hour)); got != domain.SLAStatusOK {
		t.Errorf("within due: got %s", got)
	}
	if got := clock.FirstResponseStatus(ticket, createdAt.Add(3*time.Hour)); got != domain.SLAStatusOverdue {
		t.Errorf("past due without response: got %s", got)
	}
	respondedAt := createdAt.Add(90 * time.Minute)
	ticket.FirstRespondedAt = &respondedAt
	if got := clock.FirstResponseStatus(ticket, createdAt.Add(5*time.Hour)); got != domain.SLAStatusOK {
		t.Errorf("responded ticket: got %s", got)
	}
}

func TestNewClockRatioFallback(t *testing.T) {
	for _, ratio := range []float64{-1, 0, 1, 2.5} {
		clock := NewClock(ratio)
		if clock.WarningRatio() != DefaultWarningRatio {
			t.Errorf("NewClock(%v) ratio = %v, want default", ratio, clock.WarningRatio())
		}
	}
}
