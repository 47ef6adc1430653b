package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/workflow"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// AssignmentService owns exclusive staff ownership of tickets: claim,
// transfer to a technical assignee, and release.
type AssignmentService struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	StaffRepo   repository.StaffRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Claim assigns an unassigned ticket to the calling staff member. Under a
// race exactly one caller wins; the loser re-reads the claimed ticket, fails
// the guard and receives ALREADY_ASSIGNED.
func (s *AssignmentService) Claim(ctx context.Context, staffID, ticketID string) (*domain.Ticket, error) {
	if err := s.requireActiveStaff(ctx, staffID); err != nil {
		return nil, err
	}
	var oldAssignee *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardAssign(t); err != nil {
			return err
		}
		oldAssignee = t.AssigneeID
		workflow.ApplyAssign(t, staffID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAssigneeChange(ctx, staffID, ticket.ID, oldAssignee, ticket.AssigneeID)
	s.publishAssignmentEvent(ctx, staffID, events.EventTicketAssigned, ticket)
	return ticket, nil
}

// AssignToStaff assigns an unassigned ticket to the named staff member on
// behalf of an admin actor.
func (s *AssignmentService) AssignToStaff(ctx context.Context, actorStaffID, assigneeStaffID, ticketID string) (*domain.Ticket, error) {
	if err := s.requireActiveStaff(ctx, assigneeStaffID); err != nil {
		return nil, err
	}
	var oldAssignee *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardAssign(t); err != nil {
			return err
		}
		oldAssignee = t.AssigneeID
		workflow.ApplyAssign(t, assigneeStaffID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAssigneeChange(ctx, actorStaffID, ticket.ID, oldAssignee, ticket.AssigneeID)
	s.publishAssignmentEvent(ctx, actorStaffID, events.EventTicketAssigned, ticket)
	return ticket, nil
}

// TransferTech hands an owned in-progress ticket to a technical staff
// member. Only the current owner may transfer.
func (s *AssignmentService) TransferTech(ctx context.Context, fromStaffID, toStaffID, ticketID string) (*domain.Ticket, error) {
	if err := s.requireActiveStaff(ctx, toStaffID); err != nil {
		return nil, err
	}
	var oldAssignee *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardTransferTech(t, fromStaffID); err != nil {
			return err
		}
		oldAssignee = t.AssigneeID
		workflow.ApplyTransferTech(t, toStaffID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAssigneeChange(ctx, fromStaffID, ticket.ID, oldAssignee, ticket.AssigneeID)
	s.publishAssignmentEvent(ctx, fromStaffID, events.EventTicketTransferred, ticket)
	return ticket, nil
}

// Unassign releases an assigned in-progress ticket back to the pool without
// changing its status.
func (s *AssignmentService) Unassign(ctx context.Context, actorStaffID, ticketID string) (*domain.Ticket, error) {
	var oldAssignee *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardUnassign(t); err != nil {
			return err
		}
		oldAssignee = t.AssigneeID
		workflow.ApplyUnassign(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAssigneeChange(ctx, actorStaffID, ticket.ID, oldAssignee, nil)
	s.publishAssignmentEvent(ctx, actorStaffID, events.EventTicketUnassigned, ticket)
	return ticket, nil
}

func (s *AssignmentService) requireActiveStaff(ctx context.Context, staffID string) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return apperrors.MapError(err)
	}
	if !staff.Active {
		return apperrors.NewConflict("staff member inactive", map[string]any{"staff_id": staffID})
	}
	return nil
}

// mutate mirrors the ticket service helper: read, guard, optimistic write,
// re-read on a lost race so the guard decides the final error.
func (s *AssignmentService) mutate(ctx context.Context, ticketID string, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 0; attempt < mutateRetries; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
		if err := apply(ticket); err != nil {
			return nil, err
		}
		err = s.tickets.UpdateGuarded(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.MapError(err)
		}
	}
	return nil, apperrors.NewConflict("ticket busy, retry", map[string]any{"ticket_id": ticketID})
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, actorID, ticketID string, oldAssignee, newAssignee *string) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.SubjectTypeStaff,
		ChangedByID:   &actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assignee_staff_id": oldAssignee,
		},
		NewValue: map[string]any{
			"assignee_staff_id": newAssignee,
		},
	})
}

func (s *AssignmentService) publishAssignmentEvent(ctx context.Context, actorID string, eventType events.EventType, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, StaffID: &actorID},
		Timestamp: time.Now(),
		Payload: events.TicketAssignedPayload{
			AssigneeStaffID: ticket.AssigneeID,
			AssignmentState: ticket.AssignmentState,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
