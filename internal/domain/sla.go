package domain

import "time"

// SLAStatus is the derived resolution-SLA label surfaced to dashboards.
type SLAStatus string

const (
	SLAStatusOK      SLAStatus = "OK"
	SLAStatusWarning SLAStatus = "WARNING"
	SLAStatusOverdue SLAStatus = "OVERDUE"
)

// SLARule is one cell of the severity x priority matrix maintained by the
// SLA rule collaborator.
type SLARule struct {
	ID               string
	Severity         TicketSeverity
	PriorityLevel    PriorityLevel
	FirstResponseSLA time.Duration
	ResolutionSLA    time.Duration
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
