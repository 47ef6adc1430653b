package events

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketTransferred EventType = "ticket_transferred"
	EventTicketUnassigned  EventType = "ticket_unassigned"
	EventTicketCompleted   EventType = "ticket_completed"
	EventTicketClosed      EventType = "ticket_closed"
	EventTicketReplied     EventType = "ticket_replied"
	EventTicketEscalated   EventType = "ticket_escalated"
	EventSLABreached       EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	CustomerID *string            `json:"customer_id,omitempty"`
	StaffID    *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code          string                `json:"code"`
	Severity      domain.TicketSeverity `json:"severity"`
	PriorityLevel domain.PriorityLevel  `json:"priority_level"`
	Subject       string                `json:"subject"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeStaffID *string                `json:"assignee_staff_id,omitempty"`
	AssignmentState domain.AssignmentState `json:"assignment_state"`
}

// TicketStatusPayload payload for completed/closed events.
type TicketStatusPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	ReplyID        string `json:"reply_id"`
	IsStaffReply   bool   `json:"is_staff_reply"`
	FirstResponse  bool   `json:"first_response"`
	SendEmail      bool   `json:"send_email"`
	MessagePreview string `json:"message_preview"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldSeverity domain.TicketSeverity `json:"old_severity"`
	NewSeverity domain.TicketSeverity `json:"new_severity"`
}

// SLABreachedPayload payload emitted by the sweep.
type SLABreachedPayload struct {
	SLAStatus       domain.SLAStatus `json:"sla_status"`
	ResolutionDueAt time.Time        `json:"resolution_due_at"`
}
