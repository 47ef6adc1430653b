package workflow

import (
	"testing"
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from domain.TicketStatus
		to   domain.TicketStatus
		want bool
	}{
		{domain.TicketStatusNew, domain.TicketStatusInProgress, true},
		{domain.TicketStatusNew, domain.TicketStatusClosed, true},
		{domain.TicketStatusInProgress, domain.TicketStatusCompleted, true},
		{domain.TicketStatusCompleted, domain.TicketStatusClosed, true},

		// Illegal edges
		{domain.TicketStatusNew, domain.TicketStatusCompleted, false},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{domain.TicketStatusInProgress, domain.TicketStatusNew, false},
		{domain.TicketStatusCompleted, domain.TicketStatusInProgress, false},
		{domain.TicketStatusClosed, domain.TicketStatusNew, false},
		{domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		if got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func newTicket(status domain.TicketStatus, assignee *string) *domain.Ticket {
	state := domain.AssignmentUnassigned
	if assignee != nil {
		state = domain.AssignmentAssigned
	}
	return &domain.Ticket{
		ID:              "t-1",
		Status:          status,
		Severity:        domain.TicketSeverityMedium,
		AssignmentState: state,
		AssigneeID:      assignee,
		CreatedAt:       time.Now(),
	}
}

func staffPtr(id string) *string { return &id }

func TestGuardAssign(t *testing.T) {
	if err := GuardAssign(newTicket(domain.TicketStatusNew, nil)); err != nil {
		t.Fatalf("assign from NEW unassigned: %v", err)
	}
	if err := GuardAssign(newTicket(domain.TicketStatusInProgress, nil)); err != nil {
		t.Fatalf("assign from IN_PROGRESS unassigned: %v", err)
	}

	err := GuardAssign(newTicket(domain.TicketStatusInProgress, staffPtr("s-1")))
	if apperrors.CodeOf(err) != "ALREADY_ASSIGNED" {
		t.Errorf("assign over existing owner: got %v", err)
	}

	err = GuardAssign(newTicket(domain.TicketStatusCompleted, nil))
	if apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Errorf("assign on completed: got %v", err)
	}
	err = GuardAssign(newTicket(domain.TicketStatusClosed, nil))
	if apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Errorf("assign on closed: got %v", err)
	}
}

func TestApplyAssign(t *testing.T) {
	ticket := newTicket(domain.TicketStatusNew, nil)
	ApplyAssign(ticket, "s-7")
	if ticket.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", ticket.Status)
	}
	if ticket.AssignmentState != domain.AssignmentAssigned {
		t.Errorf("assignment state = %s, want ASSIGNED", ticket.AssignmentState)
	}
	if !ticket.OwnedBy("s-7") {
		t.Error("assignee not recorded")
	}
}

func TestGuardTransferTech(t *testing.T) {
	owned := newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))
	if err := GuardTransferTech(owned, "s-1"); err != nil {
		t.Fatalf("transfer by owner: %v", err)
	}

	// transfer is also legal when already in the TECHNICAL state
	owned.AssignmentState = domain.AssignmentTechnical
	if err := GuardTransferTech(owned, "s-1"); err != nil {
		t.Fatalf("transfer from TECHNICAL: %v", err)
	}

	err := GuardTransferTech(owned, "s-2")
	if apperrors.CodeOf(err) != "NOT_OWNER" {
		t.Errorf("transfer by non-owner: got %v", err)
	}

	err = GuardTransferTech(newTicket(domain.TicketStatusInProgress, nil), "s-1")
	if apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Errorf("transfer without assignee: got %v", err)
	}

	err = GuardTransferTech(newTicket(domain.TicketStatusNew, nil), "s-1")
	if apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Errorf("transfer from NEW: got %v", err)
	}

	err = GuardTransferTech(newTicket(domain.TicketStatusClosed, staffPtr("s-1")), "s-1")
	if apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Errorf("transfer on closed: got %v", err)
	}
}

func TestGuardUnassign(t *testing.T) {
	if err := GuardUnassign(newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))); err != nil {
		t.Fatalf("unassign assigned ticket: %v", err)
	}

	tech := newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))
	tech.AssignmentState = domain.AssignmentTechnical
	if err := GuardUnassign(tech); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Errorf("unassign technical ticket: got %v", err)
	}

	if err := GuardUnassign(newTicket(domain.TicketStatusNew, nil)); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Errorf("unassign NEW ticket: got %v", err)
	}
}

func TestGuardCompleteAndClose(t *testing.T) {
	if err := GuardComplete(newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))); err != nil {
		t.Fatalf("complete in-progress: %v", err)
	}
	if err := GuardComplete(newTicket(domain.TicketStatusNew, nil)); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Error("complete from NEW should be rejected")
	}
	if err := GuardComplete(newTicket(domain.TicketStatusClosed, nil)); apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Error("complete on closed should be finalized error")
	}

	if err := GuardClose(newTicket(domain.TicketStatusNew, nil)); err != nil {
		t.Fatalf("direct close from NEW: %v", err)
	}
	if err := GuardClose(newTicket(domain.TicketStatusCompleted, nil)); err != nil {
		t.Fatalf("close from COMPLETED: %v", err)
	}
	if err := GuardClose(newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Error("close from IN_PROGRESS should be rejected")
	}
	if err := GuardClose(newTicket(domain.TicketStatusClosed, nil)); apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Error("close on closed should be finalized error")
	}
}

func TestGuardReply(t *testing.T) {
	if err := GuardReply(newTicket(domain.TicketStatusNew, nil)); err != nil {
		t.Errorf("reply on NEW: %v", err)
	}
	if err := GuardReply(newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))); err != nil {
		t.Errorf("reply on IN_PROGRESS: %v", err)
	}
	for _, status := range []domain.TicketStatus{domain.TicketStatusCompleted, domain.TicketStatusClosed} {
		if err := GuardReply(newTicket(status, nil)); apperrors.CodeOf(err) != "TICKET_FINALIZED" {
			t.Errorf("reply on %s: got %v", status, err)
		}
	}
}

func TestGuardEscalateSeverity(t *testing.T) {
	ticket := newTicket(domain.TicketStatusInProgress, staffPtr("s-1"))
	if err := GuardEscalateSeverity(ticket, domain.TicketSeverityCritical); err != nil {
		t.Fatalf("escalate MEDIUM -> CRITICAL: %v", err)
	}
	if err := GuardEscalateSeverity(ticket, domain.TicketSeverityLow); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Error("lowering severity should be rejected")
	}
	if err := GuardEscalateSeverity(ticket, domain.TicketSeverityMedium); apperrors.CodeOf(err) != "INVALID_TRANSITION" {
		t.Error("same severity should be rejected")
	}
	if err := GuardEscalateSeverity(ticket, domain.TicketSeverity("WILD")); apperrors.CodeOf(err) != "VALIDATION_FAILED" {
		t.Error("unknown severity should fail validation")
	}
	closed := newTicket(domain.TicketStatusClosed, nil)
	if err := GuardEscalateSeverity(closed, domain.TicketSeverityCritical); apperrors.CodeOf(err) != "TICKET_FINALIZED" {
		t.Error("escalation on closed ticket should be finalized error")
	}
}
