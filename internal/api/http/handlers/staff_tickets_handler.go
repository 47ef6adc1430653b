package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// StaffTicketsHandler manages the staff console endpoints: listing, assignment,
// transfer, severity escalation and the complete/close transitions.
type StaffTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	logger      *zap.Logger
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, logger *zap.Logger) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, assignments: assignments, logger: logger}
}

// ListTickets GET /staff/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	if mine := c.Query("assignee_id"); mine != "" {
		assignee := mine
		filter.AssigneeID = &assignee
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		id := customerID
		filter.CustomerID = &id
	}
	views, total, err := h.tickets.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pagedSummaries(views, total, filter.Page, filter.PageSize)})
}

// GetTicket GET /staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	view, replies, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(view, replies)})
}

// AssignTicket POST /staff/tickets/:id/assign. An empty staff_id claims the
// ticket for the caller.
func (h *StaffTicketsHandler) AssignTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var ticket *domain.Ticket
	if req.StaffID == "" || req.StaffID == staff.ID {
		ticket, err = h.assignments.Claim(c.Context(), staff.ID, c.Params("id"))
	} else {
		ticket, err = h.assignments.AssignToStaff(c.Context(), staff.ID, req.StaffID, c.Params("id"))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// TransferTicket POST /staff/tickets/:id/transfer.
func (h *StaffTicketsHandler) TransferTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransferTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" {
		return apperrors.NewValidationError("staff_id required", nil)
	}
	ticket, err := h.assignments.TransferTech(c.Context(), staff.ID, req.StaffID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// UnassignTicket POST /staff/tickets/:id/unassign.
func (h *StaffTicketsHandler) UnassignTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.Unassign(c.Context(), staff.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// CompleteTicket POST /staff/tickets/:id/complete.
func (h *StaffTicketsHandler) CompleteTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Complete(c.Context(), staff.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// CloseTicket POST /staff/tickets/:id/close.
func (h *StaffTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Close(c.Context(), staff.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// EscalateTicket POST /staff/tickets/:id/escalate.
func (h *StaffTicketsHandler) EscalateTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EscalateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.EscalateSeverity(c.Context(), staff.ID, c.Params("id"), req.Severity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(c, ticket)})
}

// AddReply POST /staff/tickets/:id/replies.
func (h *StaffTicketsHandler) AddReply(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := h.tickets.Reply(c.Context(), domain.SubjectTypeStaff, staff.ID, c.Params("id"), service.ReplyInput{
		Message:   req.Message,
		SendEmail: req.SendEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ReplyResponse{
		ID:           reply.ID,
		SenderID:     reply.SenderID,
		IsStaffReply: reply.IsStaffReply,
		Message:      reply.Message,
		SentAt:       reply.SentAt,
	}})
}

// summary re-fetches the ticket so the response carries fresh SLA labels. The
// mutation already committed, so a failed re-fetch falls back to the mutated
// ticket without labels rather than failing the request.
func (h *StaffTicketsHandler) summary(c *fiber.Ctx, ticket *domain.Ticket) dto.TicketSummary {
	view, _, err := h.tickets.GetTicket(c.Context(), ticket.ID)
	if err != nil {
		h.logger.Warn("ticket summary re-fetch failed, sla labels omitted",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return dto.NewTicketSummary(&service.TicketView{Ticket: *ticket})
	}
	return dto.NewTicketSummary(view)
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}
