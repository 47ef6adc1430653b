package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// CustomerRepository provides customer and support-plan lookups. Plans are
// read-only to this engine.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetActivePlanLevel(ctx context.Context, customerID string) (domain.PriorityLevel, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository builds repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, name, email, password_hash, total_spend, plan_id, created_at, updated_at`

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1`, email)
}

// GetActivePlanLevel returns the priority level granted by the customer's
// active plan, or STANDARD when no active plan is attached.
func (r *customerRepository) GetActivePlanLevel(ctx context.Context, customerID string) (domain.PriorityLevel, error) {
	const query = `
        SELECT p.priority_level
        FROM customers c
        JOIN support_plans p ON p.id = c.plan_id AND p.is_active
        WHERE c.id=$1`
	var level int
	if err := r.pool.QueryRow(ctx, query, customerID).Scan(&level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PriorityStandard, nil
		}
		return domain.PriorityStandard, err
	}
	return domain.PriorityLevel(level), nil
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.PasswordHash,
		&customer.TotalSpend,
		&customer.PlanID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}
