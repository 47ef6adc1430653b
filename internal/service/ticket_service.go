package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/sla"
	"github.com/spec-kit/support-engine/internal/workflow"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// mutateRetries bounds re-reads after a lost optimistic write.
const mutateRetries = 3

// PriorityResolver yields a customer's effective priority level at ticket
// creation time.
type PriorityResolver interface {
	ResolveForCustomer(ctx context.Context, customerID string) (domain.PriorityLevel, error)
}

// TicketService coordinates the ticket lifecycle: creation, replies, severity
// escalation and the complete/close transitions.
type TicketService struct {
	tickets    repository.TicketRepository
	replies    repository.ReplyRepository
	history    repository.TicketHistoryRepository
	customers  repository.CustomerRepository
	priorities PriorityResolver
	resolver   *sla.Resolver
	clock      *sla.Clock
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ReplyRepo    repository.ReplyRepository
	HistoryRepo  repository.TicketHistoryRepository
	CustomerRepo repository.CustomerRepository
	Priorities   PriorityResolver
	SLAResolver  *sla.Resolver
	SLAClock     *sla.Clock
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Severity    domain.TicketSeverity
}

// TicketView decorates a ticket with its derived SLA labels.
type TicketView struct {
	domain.Ticket
	SLAStatus              domain.SLAStatus
	FirstResponseSLAStatus domain.SLAStatus
}

// TicketListFilter describes console listing filters.
type TicketListFilter struct {
	CustomerID      *string
	AssigneeID      *string
	Statuses        []domain.TicketStatus
	Severities      []domain.TicketSeverity
	AssignmentState *domain.AssignmentState
	SLAStatus       *domain.SLAStatus
	SearchTerm      *string
	Page            int
	PageSize        int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		replies:    deps.ReplyRepo,
		history:    deps.HistoryRepo,
		customers:  deps.CustomerRepo,
		priorities: deps.Priorities,
		resolver:   deps.SLAResolver,
		clock:      deps.SLAClock,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a ticket for a customer. Priority level and both SLA
// deadlines are committed here and never recomputed.
func (s *TicketService) CreateTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}
	severity := input.Severity
	if severity == "" {
		severity = domain.TicketSeverityMedium
	}
	if !severity.Valid() {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": severity})
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	level, err := s.priorities.ResolveForCustomer(ctx, customerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	firstResponseDue, resolutionDue, err := s.resolver.Deadlines(ctx, severity, level, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		Code:               generateTicketCode(),
		CustomerID:         customerID,
		Subject:            subject,
		Description:        description,
		Status:             domain.TicketStatusNew,
		Severity:           severity,
		PriorityLevel:      level,
		AssignmentState:    domain.AssignmentUnassigned,
		FirstResponseDueAt: firstResponseDue,
		ResolutionDueAt:    resolutionDue,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    customerActor(customerID),
		Payload: events.TicketCreatedPayload{
			Code:          ticket.Code,
			Severity:      ticket.Severity,
			PriorityLevel: ticket.PriorityLevel,
			Subject:       ticket.Subject,
		},
	})
	return ticket, nil
}

// ListTickets returns a page of tickets with derived SLA labels.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]TicketView, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	repoFilter := repository.TicketFilter{
		CustomerID:      filter.CustomerID,
		AssigneeID:      filter.AssigneeID,
		Statuses:        filter.Statuses,
		Severities:      filter.Severities,
		AssignmentState: filter.AssignmentState,
		SLAStatus:       filter.SLAStatus,
		SearchTerm:      filter.SearchTerm,
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	}
	tickets, total, err := s.tickets.ListWithFilter(ctx, repoFilter, s.clock.WarningRatio())
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	now := time.Now()
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, s.view(&tickets[i], now))
	}
	return views, total, nil
}

// GetTicket fetches a ticket with its ordered reply thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketView, []domain.Reply, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.replies.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	view := s.view(ticket, time.Now())
	return &view, replies, nil
}

// ReplyInput describes a thread message.
type ReplyInput struct {
	Message   string
	SendEmail bool
}

// Reply appends a message while the ticket is not finished. The first
// qualifying staff reply stamps FirstRespondedAt exactly once; the stamp and
// the reply row commit as one unit, so a failed insert leaves no trace.
func (s *TicketService) Reply(ctx context.Context, actor domain.SubjectType, senderID, ticketID string, input ReplyInput) (*domain.Reply, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}
	isStaff := actor == domain.SubjectTypeStaff

	reply := &domain.Reply{
		SenderID:     senderID,
		IsStaffReply: isStaff,
		Message:      message,
	}
	firstResponse := false
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardReply(t); err != nil {
			return err
		}
		if actor == domain.SubjectTypeCustomer && t.CustomerID != senderID {
			return apperrors.NewForbidden("ticket belongs to another customer")
		}
		firstResponse = false
		if isStaff && t.FirstRespondedAt == nil {
			now := time.Now()
			t.FirstRespondedAt = &now
			firstResponse = true
		}
		return nil
	}, func(ctx context.Context, t *domain.Ticket) error {
		reply.TicketID = t.ID
		return s.tickets.UpdateGuardedWithReply(ctx, t, reply)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplied,
		TicketID: ticket.ID,
		Actor:    actorFromSubject(actor, senderID),
		Payload: events.TicketRepliedPayload{
			ReplyID:        reply.ID,
			IsStaffReply:   isStaff,
			FirstResponse:  firstResponse,
			SendEmail:      input.SendEmail,
			MessagePreview: stringPreview(message, 120),
		},
	})
	return reply, nil
}

// Complete resolves an in-progress ticket and stamps ResolvedAt once.
func (s *TicketService) Complete(ctx context.Context, staffID, ticketID string) (*domain.Ticket, error) {
	return s.finalize(ctx, staffID, ticketID, domain.TicketStatusCompleted, workflow.GuardComplete, events.EventTicketCompleted)
}

// Close closes a ticket: directly from NEW, or from COMPLETED as the
// administrative follow-up. IN_PROGRESS tickets must be completed first.
func (s *TicketService) Close(ctx context.Context, staffID, ticketID string) (*domain.Ticket, error) {
	return s.finalize(ctx, staffID, ticketID, domain.TicketStatusClosed, workflow.GuardClose, events.EventTicketClosed)
}

func (s *TicketService) finalize(ctx context.Context, staffID, ticketID string, target domain.TicketStatus, guard func(*domain.Ticket) error, eventType events.EventType) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if err := guard(t); err != nil {
			return err
		}
		oldStatus = t.Status
		t.Status = target
		if t.ResolvedAt == nil {
			now := time.Now()
			t.ResolvedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordStatusChange(ctx, staffID, ticket.ID, oldStatus, ticket.Status)
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: ticket.ID,
		Actor:    staffActor(staffID),
		Payload: events.TicketStatusPayload{
			OldStatus:  oldStatus,
			NewStatus:  ticket.Status,
			ResolvedAt: ticket.ResolvedAt,
		},
	})
	return ticket, nil
}

// EscalateSeverity raises a live ticket's severity. Deadlines committed at
// creation are untouched.
func (s *TicketService) EscalateSeverity(ctx context.Context, staffID, ticketID string, next domain.TicketSeverity) (*domain.Ticket, error) {
	var oldSeverity domain.TicketSeverity
	ticket, err := s.mutateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if err := workflow.GuardEscalateSeverity(t, next); err != nil {
			return err
		}
		oldSeverity = t.Severity
		t.Severity = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, staffID, ticket.ID, domain.ChangeTypeSeverity,
		map[string]any{"severity": oldSeverity},
		map[string]any{"severity": ticket.Severity})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    staffActor(staffID),
		Payload: events.TicketEscalatedPayload{
			OldSeverity: oldSeverity,
			NewSeverity: ticket.Severity,
		},
	})
	return ticket, nil
}

// SLAStatus derives the current resolution-SLA label for a ticket.
func (s *TicketService) SLAStatus(ctx context.Context, ticketID string) (domain.SLAStatus, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return s.clock.Status(ticket, time.Now()), nil
}

func (s *TicketService) view(t *domain.Ticket, now time.Time) TicketView {
	return TicketView{
		Ticket:                 *t,
		SLAStatus:              s.clock.Status(t, now),
		FirstResponseSLAStatus: s.clock.FirstResponseStatus(t, now),
	}
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// mutateTicket runs read-guard-write under optimistic concurrency. A lost
// write re-reads and re-runs the guard, so the loser of a race surfaces the
// guard's taxonomy error against fresh state rather than a raw conflict.
func (s *TicketService) mutateTicket(ctx context.Context, ticketID string, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketID, apply, s.tickets.UpdateGuarded)
}

func (s *TicketService) mutate(ctx context.Context, ticketID string, apply func(*domain.Ticket) error, write func(context.Context, *domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 0; attempt < mutateRetries; attempt++ {
		ticket, err := s.getTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := apply(ticket); err != nil {
			return nil, err
		}
		err = write(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.MapError(err)
		}
	}
	return nil, apperrors.NewConflict("ticket busy, retry", map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) recordStatusChange(ctx context.Context, staffID, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	s.recordHistory(ctx, staffID, ticketID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus})
}

func (s *TicketService) recordHistory(ctx context.Context, staffID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	var changedBy *string
	if staffID != "" {
		changedBy = &staffID
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.SubjectTypeStaff,
		ChangedByID:   changedBy,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketCode() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func customerActor(customerID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeCustomer,
		CustomerID: &customerID,
	}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

func actorFromSubject(subject domain.SubjectType, id string) events.Actor {
	switch subject {
	case domain.SubjectTypeStaff:
		return staffActor(id)
	default:
		return customerActor(id)
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
