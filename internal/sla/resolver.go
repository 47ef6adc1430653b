package sla

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// RuleSource is the read contract of the SLA rule collaborator. Implementors
// return ErrNoRuleConfigured when the severity x priority matrix has a gap.
type RuleSource interface {
	Resolve(ctx context.Context, severity domain.TicketSeverity, level domain.PriorityLevel) (*domain.SLARule, error)
}

// Defaults is the fallback pair applied when the matrix has a gap.
type Defaults struct {
	FirstResponse time.Duration
	Resolution    time.Duration
}

// Resolver computes first-response and resolution deadlines from the
// configured matrix. Deadlines are computed exactly once, at ticket creation;
// later severity escalation never shrinks committed deadlines.
type Resolver struct {
	source   RuleSource
	defaults Defaults
	logger   *zap.Logger
}

// NewResolver constructs a resolver.
func NewResolver(source RuleSource, defaults Defaults, logger *zap.Logger) *Resolver {
	return &Resolver{source: source, defaults: defaults, logger: logger}
}

// Durations returns the (firstResponse, resolution) pair for the cell. A
// matrix gap falls back to the defaults and is logged as a configuration
// defect rather than surfaced to the caller.
func (r *Resolver) Durations(ctx context.Context, severity domain.TicketSeverity, level domain.PriorityLevel) (time.Duration, time.Duration, error) {
	rule, err := r.source.Resolve(ctx, severity, level)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoRuleConfigured) {
			r.logger.Warn("sla matrix gap, using defaults",
				zap.String("severity", string(severity)),
				zap.Int("priority_level", int(level)))
			return r.defaults.FirstResponse, r.defaults.Resolution, nil
		}
		return 0, 0, err
	}
	return rule.FirstResponseSLA, rule.ResolutionSLA, nil
}

// Deadlines anchors the resolved pair at createdAt.
func (r *Resolver) Deadlines(ctx context.Context, severity domain.TicketSeverity, level domain.PriorityLevel, createdAt time.Time) (time.Time, time.Time, error) {
	firstResponse, resolution, err := r.Durations(ctx, severity, level)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return createdAt.Add(firstResponse), createdAt.Add(resolution), nil
}
