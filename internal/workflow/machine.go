package workflow

import (
	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// allowedTransitions defines the legal status edges. CLOSED is reachable
// directly from NEW (closed without being worked) and from COMPLETED via the
// administrative follow-up close; IN_PROGRESS must pass through COMPLETED.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusCompleted},
	domain.TicketStatusCompleted:  {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

// CanTransition reports whether the status edge current -> next is legal.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// GuardAssign validates the assign/claim transition: NEW or IN_PROGRESS,
// and no current owner.
func GuardAssign(t *domain.Ticket) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if t.Status != domain.TicketStatusNew && t.Status != domain.TicketStatusInProgress {
		return apperrors.NewInvalidTransition("ticket cannot be assigned in current status",
			map[string]any{"status": t.Status})
	}
	if t.Assigned() {
		return apperrors.NewAlreadyAssigned(t.ID)
	}
	return nil
}

// ApplyAssign mutates the ticket for a validated assign.
func ApplyAssign(t *domain.Ticket, staffID string) {
	t.Status = domain.TicketStatusInProgress
	t.AssignmentState = domain.AssignmentAssigned
	t.AssigneeID = &staffID
}

// GuardTransferTech validates handing an owned IN_PROGRESS ticket to a
// technical staff member.
func GuardTransferTech(t *domain.Ticket, fromStaffID string) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if t.Status != domain.TicketStatusInProgress || !t.Assigned() {
		return apperrors.NewInvalidTransition("ticket must be in progress with an assignee to transfer",
			map[string]any{"status": t.Status, "assignment_state": t.AssignmentState})
	}
	if !t.OwnedBy(fromStaffID) {
		return apperrors.NewNotOwner(t.ID)
	}
	return nil
}

// ApplyTransferTech mutates the ticket for a validated transfer.
func ApplyTransferTech(t *domain.Ticket, toStaffID string) {
	t.AssignmentState = domain.AssignmentTechnical
	t.AssigneeID = &toStaffID
}

// GuardUnassign validates releasing ownership. Only an IN_PROGRESS ticket in
// the plain ASSIGNED state can be released; status is unchanged.
func GuardUnassign(t *domain.Ticket) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if t.Status != domain.TicketStatusInProgress || t.AssignmentState != domain.AssignmentAssigned {
		return apperrors.NewInvalidTransition("ticket cannot be unassigned in current state",
			map[string]any{"status": t.Status, "assignment_state": t.AssignmentState})
	}
	return nil
}

// ApplyUnassign mutates the ticket for a validated unassign.
func ApplyUnassign(t *domain.Ticket) {
	t.AssignmentState = domain.AssignmentUnassigned
	t.AssigneeID = nil
}

// GuardComplete validates resolving a ticket.
func GuardComplete(t *domain.Ticket) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if !CanTransition(t.Status, domain.TicketStatusCompleted) {
		return apperrors.NewInvalidTransition("only in-progress tickets can be completed",
			map[string]any{"status": t.Status})
	}
	return nil
}

// GuardClose validates closing a ticket. Closing an IN_PROGRESS ticket is
// rejected: complete must precede close.
func GuardClose(t *domain.Ticket) error {
	if t.Status == domain.TicketStatusClosed {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if !CanTransition(t.Status, domain.TicketStatusClosed) {
		return apperrors.NewInvalidTransition("ticket cannot be closed in current status",
			map[string]any{"status": t.Status})
	}
	return nil
}

// GuardReply validates appending a reply: only NEW and IN_PROGRESS tickets
// accept messages.
func GuardReply(t *domain.Ticket) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	return nil
}

// GuardEscalateSeverity validates raising severity on a live ticket.
// Severity never goes down and never changes committed deadlines.
func GuardEscalateSeverity(t *domain.Ticket, next domain.TicketSeverity) error {
	if t.Status.IsFinal() {
		return apperrors.NewTicketFinalized(t.ID)
	}
	if !next.Valid() {
		return apperrors.NewValidationError("unknown severity", map[string]any{"severity": next})
	}
	if !next.AtLeast(t.Severity) || next == t.Severity {
		return apperrors.NewInvalidTransition("severity can only be escalated",
			map[string]any{"current": t.Severity, "requested": next})
	}
	return nil
}
