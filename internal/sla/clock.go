package sla

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// DefaultWarningRatio is the share of the resolution SLA treated as the
// warning window when no ratio is configured.
const DefaultWarningRatio = 0.20

// Clock derives SLA labels from stored deadlines and wall-clock time. It
// holds no state beyond the warning ratio and performs no I/O.
type Clock struct {
	warningRatio float64
}

// NewClock constructs a clock. Ratios outside (0,1) fall back to the default.
func NewClock(warningRatio float64) *Clock {
	if warningRatio <= 0 || warningRatio >= 1 {
		warningRatio = DefaultWarningRatio
	}
	return &Clock{warningRatio: warningRatio}
}

// Status derives the resolution-SLA label for a ticket at the given instant.
// A resolved ticket is always OK; this engine never retroactively marks a
// resolved ticket overdue.
func (c *Clock) Status(t *domain.Ticket, now time.Time) domain.SLAStatus {
	if t.ResolvedAt != nil {
		return domain.SLAStatusOK
	}
	if now.After(t.ResolutionDueAt) {
		return domain.SLAStatusOverdue
	}
	window := c.warningWindow(t)
	if now.After(t.ResolutionDueAt.Add(-window)) {
		return domain.SLAStatusWarning
	}
	return domain.SLAStatusOK
}

// FirstResponseStatus derives the first-response view for dashboards that
// distinguish the two SLAs.
func (c *Clock) FirstResponseStatus(t *domain.Ticket, now time.Time) domain.SLAStatus {
	if t.FirstRespondedAt != nil {
		return domain.SLAStatusOK
	}
	if now.After(t.FirstResponseDueAt) {
		return domain.SLAStatusOverdue
	}
	return domain.SLAStatusOK
}

// WarningRatio exposes the configured ratio for SQL-side derivations that
// must agree with the in-process clock.
func (c *Clock) WarningRatio() float64 {
	return c.warningRatio
}

func (c *Clock) warningWindow(t *domain.Ticket) time.Duration {
	total := t.ResolutionDueAt.Sub(t.CreatedAt)
	if total <= 0 {
		return 0
	}
	return time.Duration(float64(total) * c.warningRatio)
}
