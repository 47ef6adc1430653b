package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// LoyaltyRuleRepository persists spend-to-priority rules. Every mutation that
// can leave a rule active re-validates the global ordering invariant inside
// one transaction that locks the full rule set, so two concurrent activations
// cannot both pass against a stale snapshot.
type LoyaltyRuleRepository interface {
	List(ctx context.Context) ([]domain.SupportPriorityLoyaltyRule, error)
	ListActive(ctx context.Context) ([]domain.SupportPriorityLoyaltyRule, error)
	GetByID(ctx context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error)
	Create(ctx context.Context, rule *domain.SupportPriorityLoyaltyRule) error
	Update(ctx context.Context, rule *domain.SupportPriorityLoyaltyRule) error
	Toggle(ctx context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error)
	Remove(ctx context.Context, id string) error
}

type loyaltyRuleRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRuleRepository builds repository.
func NewLoyaltyRuleRepository(pool *pgxpool.Pool) LoyaltyRuleRepository {
	return &loyaltyRuleRepository{pool: pool}
}

const ruleColumns = `id, min_total_spend, priority_level, is_active, created_at, updated_at`

func (r *loyaltyRuleRepository) List(ctx context.Context) ([]domain.SupportPriorityLoyaltyRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM support_priority_loyalty_rules ORDER BY priority_level, min_total_spend`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *loyaltyRuleRepository) ListActive(ctx context.Context) ([]domain.SupportPriorityLoyaltyRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM support_priority_loyalty_rules WHERE is_active ORDER BY priority_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *loyaltyRuleRepository) GetByID(ctx context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error) {
	var rule domain.SupportPriorityLoyaltyRule
	err := r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM support_priority_loyalty_rules WHERE id=$1`, id).
		Scan(&rule.ID, &rule.MinTotalSpend, &rule.PriorityLevel, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *loyaltyRuleRepository) Create(ctx context.Context, rule *domain.SupportPriorityLoyaltyRule) error {
	return r.withValidatedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO support_priority_loyalty_rules (min_total_spend, priority_level, is_active)
            VALUES ($1,$2,$3)
            RETURNING id, created_at, updated_at`,
			rule.MinTotalSpend, rule.PriorityLevel, rule.IsActive,
		).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
		return err
	})
}

func (r *loyaltyRuleRepository) Update(ctx context.Context, rule *domain.SupportPriorityLoyaltyRule) error {
	return r.withValidatedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
            UPDATE support_priority_loyalty_rules
            SET min_total_spend=$1, priority_level=$2, is_active=$3, updated_at=NOW()
            WHERE id=$4`,
			rule.MinTotalSpend, rule.PriorityLevel, rule.IsActive, rule.ID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *loyaltyRuleRepository) Toggle(ctx context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error) {
	var rule domain.SupportPriorityLoyaltyRule
	err := r.withValidatedTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
            UPDATE support_priority_loyalty_rules
            SET is_active = NOT is_active, updated_at=NOW()
            WHERE id=$1
            RETURNING `+ruleColumns,
			id,
		).Scan(&rule.ID, &rule.MinTotalSpend, &rule.PriorityLevel, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *loyaltyRuleRepository) Remove(ctx context.Context, id string) error {
	// removal cannot violate ordering among the remainder
	cmd, err := r.pool.Exec(ctx, `DELETE FROM support_priority_loyalty_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// withValidatedTx locks the rule table, applies the mutation and re-checks
// the ordering invariant over the resulting active set before committing. A
// violation rolls the whole mutation back, leaving the store unchanged.
func (r *loyaltyRuleRepository) withValidatedTx(ctx context.Context, mutate func(context.Context, pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT id FROM support_priority_loyalty_rules FOR UPDATE`); err != nil {
		return err
	}
	if err := mutate(ctx, tx); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `SELECT `+ruleColumns+` FROM support_priority_loyalty_rules WHERE is_active`)
	if err != nil {
		return err
	}
	active, err := scanRules(rows)
	rows.Close()
	if err != nil {
		return err
	}
	if err := domain.ValidateRuleOrdering(active); err != nil {
		return apperrors.NewPriorityOrderingViolation(err.Error())
	}
	return tx.Commit(ctx)
}

func scanRules(rows pgx.Rows) ([]domain.SupportPriorityLoyaltyRule, error) {
	var result []domain.SupportPriorityLoyaltyRule
	for rows.Next() {
		var rule domain.SupportPriorityLoyaltyRule
		if err := rows.Scan(&rule.ID, &rule.MinTotalSpend, &rule.PriorityLevel, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
