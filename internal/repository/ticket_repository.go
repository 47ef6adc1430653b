package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// ErrVersionConflict signals a lost optimistic-concurrency race: the row was
// mutated between read and write. Callers re-read and map to their own
// conflict taxonomy.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures console search parameters.
type TicketFilter struct {
	CustomerID      *string
	AssigneeID      *string
	Statuses        []domain.TicketStatus
	Severities      []domain.TicketSeverity
	PriorityLevels  []domain.PriorityLevel
	AssignmentState *domain.AssignmentState
	SLAStatus       *domain.SLAStatus
	SearchTerm      *string
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. All mutations go through
// UpdateGuarded so a single ticket row is the unit of concurrency control.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter, warningRatio float64) ([]domain.Ticket, int, error)
	ListUnresolvedDue(ctx context.Context, before time.Time, limit int) ([]domain.Ticket, error)
	UpdateGuarded(ctx context.Context, ticket *domain.Ticket) error
	UpdateGuardedWithReply(ctx context.Context, ticket *domain.Ticket, reply *domain.Reply) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, code, customer_id, assignee_staff_id, subject, description,
               status, severity, priority_level, assignment_state,
               first_response_due_at, resolution_due_at, first_responded_at, resolved_at,
               version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, customer_id, subject, description, status, severity,
            priority_level, assignment_state, first_response_due_at, resolution_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Code,
		ticket.CustomerID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Severity,
		ticket.PriorityLevel,
		ticket.AssignmentState,
		ticket.FirstResponseDueAt,
		ticket.ResolutionDueAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const updateTicketGuardedQuery = `
        UPDATE tickets SET assignee_staff_id=$1, status=$2, severity=$3, assignment_state=$4,
            first_responded_at=$5, resolved_at=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8
        RETURNING version, updated_at`

// UpdateGuarded writes mutable fields with an optimistic version check. Two
// concurrent claims on the same ticket serialize here: the loser matches no
// row and receives ErrVersionConflict.
func (r *ticketRepository) UpdateGuarded(ctx context.Context, ticket *domain.Ticket) error {
	return updateTicketGuarded(ctx, r.pool, ticket)
}

func updateTicketGuarded(ctx context.Context, q rowQuerier, ticket *domain.Ticket) error {
	err := q.QueryRow(ctx, updateTicketGuardedQuery,
		ticket.AssigneeID,
		ticket.Status,
		ticket.Severity,
		ticket.AssignmentState,
		ticket.FirstRespondedAt,
		ticket.ResolvedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

// UpdateGuardedWithReply commits the guarded ticket write and the reply
// append as one transaction. Either both rows land or neither does, so a
// failed insert cannot leave a first-response stamp behind.
func (r *ticketRepository) UpdateGuardedWithReply(ctx context.Context, ticket *domain.Ticket, reply *domain.Reply) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := updateTicketGuarded(ctx, tx, ticket); err != nil {
		return err
	}
	if err := insertReply(ctx, tx, reply); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE code=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListUnresolvedDue returns open tickets whose resolution deadline falls
// before the given instant, for the SLA sweep.
func (r *ticketRepository) ListUnresolvedDue(ctx context.Context, before time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE resolved_at IS NULL AND resolution_due_at < $1
        ORDER BY resolution_due_at ASC
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter, warningRatio float64) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_staff_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, severity := range filter.Severities {
			args = append(args, severity)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.PriorityLevels) > 0 {
		placeholders := make([]string, len(filter.PriorityLevels))
		for i, level := range filter.PriorityLevels {
			args = append(args, int(level))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority_level IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignmentState != nil {
		args = append(args, *filter.AssignmentState)
		clauses = append(clauses, fmt.Sprintf("assignment_state=$%d", len(args)))
	}
	if filter.SLAStatus != nil {
		// The OVERDUE clause needs no ratio parameter.
		if *filter.SLAStatus == domain.SLAStatusOverdue {
			clauses = append(clauses, slaStatusClause(*filter.SLAStatus, 0))
		} else {
			args = append(args, warningRatio)
			clauses = append(clauses, slaStatusClause(*filter.SLAStatus, len(args)))
		}
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s OR LOWER(code) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total
        FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	total := 0
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.CustomerID,
			&ticket.AssigneeID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.Severity,
			&ticket.PriorityLevel,
			&ticket.AssignmentState,
			&ticket.FirstResponseDueAt,
			&ticket.ResolutionDueAt,
			&ticket.FirstRespondedAt,
			&ticket.ResolvedAt,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	return result, total, rows.Err()
}

// slaStatusClause mirrors the in-process clock derivation so list filtering
// and the rendered label never disagree. The ratio parameter index feeds the
// warning-window computation.
func slaStatusClause(status domain.SLAStatus, ratioArg int) string {
	switch status {
	case domain.SLAStatusOverdue:
		return "(resolved_at IS NULL AND NOW() > resolution_due_at)"
	case domain.SLAStatusWarning:
		return fmt.Sprintf(`(resolved_at IS NULL AND NOW() <= resolution_due_at
            AND NOW() > resolution_due_at - (resolution_due_at - created_at) * $%d)`, ratioArg)
	default:
		return fmt.Sprintf(`(resolved_at IS NOT NULL OR NOW() <= resolution_due_at - (resolution_due_at - created_at) * $%d)`, ratioArg)
	}
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Severity,
		&ticket.PriorityLevel,
		&ticket.AssignmentState,
		&ticket.FirstResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.FirstRespondedAt,
		&ticket.ResolvedAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
