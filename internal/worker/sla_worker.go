package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/repository"
)

// SLASweeper periodically surfaces tickets past their resolution deadline.
// The label itself stays a pure on-read derivation; the sweep only emits
// breach events and metrics so dashboards and notifiers see breaches without
// anyone loading the ticket.
type SLASweeper struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	seen map[string]struct{}
}

// NewSLASweeper constructs a sweeper.
func NewSLASweeper(tickets repository.TicketRepository, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SLASweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLASweeper{
		tickets:    tickets,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
		seen:       make(map[string]struct{}),
	}
}

// Run sweeps until the context is cancelled.
func (s *SLASweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *SLASweeper) sweep(ctx context.Context) error {
	now := time.Now()
	overdue, err := s.tickets.ListUnresolvedDue(ctx, now, 500)
	if err != nil {
		return err
	}
	for i := range overdue {
		ticket := &overdue[i]
		if _, already := s.seen[ticket.ID]; already {
			continue
		}
		s.seen[ticket.ID] = struct{}{}

		s.logger.Warn("resolution SLA breached",
			zap.String("ticket_id", ticket.ID),
			zap.String("code", ticket.Code),
			zap.Time("resolution_due_at", ticket.ResolutionDueAt))
		if s.metrics != nil {
			s.metrics.RecordSLABreach(string(ticket.Severity))
		}
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventSLABreached,
				TicketID:  ticket.ID,
				Timestamp: now,
				Payload: events.SLABreachedPayload{
					SLAStatus:       domain.SLAStatusOverdue,
					ResolutionDueAt: ticket.ResolutionDueAt,
				},
			})
		}
	}
	return nil
}
