package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Severity    domain.TicketSeverity `json:"severity"`
}

// AssignTicketRequest payload; StaffID empty means self-claim.
type AssignTicketRequest struct {
	StaffID string `json:"staff_id,omitempty"`
}

// TransferTicketRequest payload.
type TransferTicketRequest struct {
	StaffID string `json:"staff_id"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	Severity domain.TicketSeverity `json:"severity"`
}

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Message   string `json:"message"`
	SendEmail bool   `json:"send_email"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                 string                 `json:"id"`
	Code               string                 `json:"code"`
	CustomerID         string                 `json:"customer_id"`
	AssigneeID         *string                `json:"assignee_staff_id"`
	Subject            string                 `json:"subject"`
	Status             domain.TicketStatus    `json:"status"`
	Severity           domain.TicketSeverity  `json:"severity"`
	PriorityLevel      domain.PriorityLevel   `json:"priority_level"`
	AssignmentState    domain.AssignmentState `json:"assignment_state"`
	SLAStatus          domain.SLAStatus       `json:"sla_status"`
	FirstResponseDueAt time.Time              `json:"first_response_due_at"`
	ResolutionDueAt    time.Time              `json:"resolution_due_at"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with ordered replies.
type TicketDetailResponse struct {
	TicketSummary
	Description            string           `json:"description"`
	FirstResponseSLAStatus domain.SLAStatus `json:"first_response_sla_status"`
	FirstRespondedAt       *time.Time       `json:"first_responded_at"`
	ResolvedAt             *time.Time       `json:"resolved_at"`
	Replies                []ReplyResponse  `json:"replies"`
}

// ReplyResponse represents a thread message.
type ReplyResponse struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"sender_id"`
	IsStaffReply bool      `json:"is_staff_reply"`
	Message      string    `json:"message"`
	SentAt       time.Time `json:"sent_at"`
}

// PagedResult wraps a page of items with the total match count.
type PagedResult[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewTicketSummary maps a service view to its wire shape.
func NewTicketSummary(view *service.TicketView) TicketSummary {
	return TicketSummary{
		ID:                 view.ID,
		Code:               view.Code,
		CustomerID:         view.CustomerID,
		AssigneeID:         view.AssigneeID,
		Subject:            view.Subject,
		Status:             view.Status,
		Severity:           view.Severity,
		PriorityLevel:      view.PriorityLevel,
		AssignmentState:    view.AssignmentState,
		SLAStatus:          view.SLAStatus,
		FirstResponseDueAt: view.FirstResponseDueAt,
		ResolutionDueAt:    view.ResolutionDueAt,
		CreatedAt:          view.CreatedAt,
		UpdatedAt:          view.UpdatedAt,
	}
}

// NewTicketDetail maps a service view plus replies to the wire shape.
func NewTicketDetail(view *service.TicketView, replies []domain.Reply) TicketDetailResponse {
	replyResponses := make([]ReplyResponse, 0, len(replies))
	for _, reply := range replies {
		replyResponses = append(replyResponses, ReplyResponse{
			ID:           reply.ID,
			SenderID:     reply.SenderID,
			IsStaffReply: reply.IsStaffReply,
			Message:      reply.Message,
			SentAt:       reply.SentAt,
		})
	}
	return TicketDetailResponse{
		TicketSummary:          NewTicketSummary(view),
		Description:            view.Description,
		FirstResponseSLAStatus: view.FirstResponseSLAStatus,
		FirstRespondedAt:       view.FirstRespondedAt,
		ResolvedAt:             view.ResolvedAt,
		Replies:                replyResponses,
	}
}
