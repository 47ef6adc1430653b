package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// SLARuleRepository reads and maintains the severity x priority SLA matrix.
type SLARuleRepository interface {
	Resolve(ctx context.Context, severity domain.TicketSeverity, level domain.PriorityLevel) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
	Upsert(ctx context.Context, rule *domain.SLARule) error
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository builds repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) Resolve(ctx context.Context, severity domain.TicketSeverity, level domain.PriorityLevel) (*domain.SLARule, error) {
	const query = `
        SELECT id, severity, priority_level, first_response_minutes, resolution_minutes, created_at, updated_at
        FROM sla_rules WHERE severity=$1 AND priority_level=$2`
	var rule domain.SLARule
	var frMinutes, resMinutes int
	err := r.pool.QueryRow(ctx, query, severity, int(level)).Scan(
		&rule.ID, &rule.Severity, &rule.PriorityLevel, &frMinutes, &resMinutes, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNoRuleConfigured
		}
		return nil, err
	}
	rule.FirstResponseSLA = time.Duration(frMinutes) * time.Minute
	rule.ResolutionSLA = time.Duration(resMinutes) * time.Minute
	return &rule, nil
}

func (r *slaRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	const query = `
        SELECT id, severity, priority_level, first_response_minutes, resolution_minutes, created_at, updated_at
        FROM sla_rules ORDER BY severity, priority_level`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		var rule domain.SLARule
		var frMinutes, resMinutes int
		if err := rows.Scan(&rule.ID, &rule.Severity, &rule.PriorityLevel, &frMinutes, &resMinutes, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.FirstResponseSLA = time.Duration(frMinutes) * time.Minute
		rule.ResolutionSLA = time.Duration(resMinutes) * time.Minute
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *slaRuleRepository) Upsert(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (severity, priority_level, first_response_minutes, resolution_minutes)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (severity, priority_level) DO UPDATE
        SET first_response_minutes=EXCLUDED.first_response_minutes,
            resolution_minutes=EXCLUDED.resolution_minutes,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Severity,
		int(rule.PriorityLevel),
		int(rule.FirstResponseSLA/time.Minute),
		int(rule.ResolutionSLA/time.Minute),
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}
