package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsFinal reports whether the status forbids further mutation.
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusCompleted || s == TicketStatusClosed
}

// TicketSeverity enumerates impact levels set at creation and optionally
// escalated by staff.
type TicketSeverity string

const (
	TicketSeverityLow      TicketSeverity = "LOW"
	TicketSeverityMedium   TicketSeverity = "MEDIUM"
	TicketSeverityHigh     TicketSeverity = "HIGH"
	TicketSeverityCritical TicketSeverity = "CRITICAL"
)

var severityRank = map[TicketSeverity]int{
	TicketSeverityLow:      0,
	TicketSeverityMedium:   1,
	TicketSeverityHigh:     2,
	TicketSeverityCritical: 3,
}

// AtLeast reports whether s is the same or a higher severity than other.
func (s TicketSeverity) AtLeast(other TicketSeverity) bool {
	return severityRank[s] >= severityRank[other]
}

// Valid reports whether the severity is a known value.
func (s TicketSeverity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// PriorityLevel is the customer-derived service tier of a ticket.
type PriorityLevel int

const (
	PriorityStandard PriorityLevel = 0
	PriorityPriority PriorityLevel = 1
	PriorityVIP      PriorityLevel = 2
)

// String returns the display name for the level.
func (p PriorityLevel) String() string {
	switch p {
	case PriorityVIP:
		return "VIP"
	case PriorityPriority:
		return "PRIORITY"
	default:
		return "STANDARD"
	}
}

// AssignmentState is derived from ownership, never set directly by clients.
type AssignmentState string

const (
	AssignmentUnassigned AssignmentState = "UNASSIGNED"
	AssignmentAssigned   AssignmentState = "ASSIGNED"
	AssignmentTechnical  AssignmentState = "TECHNICAL"
)

// Ticket is the aggregate for support requests. Subject, description,
// priority level and the two due dates are immutable once issued.
type Ticket struct {
	ID                 string
	Code               string
	CustomerID         string
	AssigneeID         *string
	Subject            string
	Description        string
	Status             TicketStatus
	Severity           TicketSeverity
	PriorityLevel      PriorityLevel
	AssignmentState    AssignmentState
	FirstResponseDueAt time.Time
	ResolutionDueAt    time.Time
	FirstRespondedAt   *time.Time
	ResolvedAt         *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Assigned reports whether the ticket currently has an owner.
func (t *Ticket) Assigned() bool {
	return t.AssigneeID != nil && *t.AssigneeID != ""
}

// OwnedBy reports whether staffID currently owns the ticket.
func (t *Ticket) OwnedBy(staffID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == staffID
}
