package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// fakeTicketRepo is an in-memory TicketRepository honoring the version guard,
// so optimistic-concurrency races behave like the real store.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket

	// reply-transaction collaborators, wired by fixtures that exercise Reply
	replies  *fakeReplyRepo
	replyErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Code == code {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter, _ float64) ([]domain.Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *fakeTicketRepo) ListUnresolvedDue(_ context.Context, before time.Time, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	due := make([]domain.Ticket, 0)
	for _, ticket := range r.tickets {
		if ticket.ResolvedAt == nil && !ticket.Status.IsFinal() && ticket.ResolutionDueAt.Before(before) {
			due = append(due, ticket)
		}
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (r *fakeTicketRepo) UpdateGuarded(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

// UpdateGuardedWithReply mirrors the real store's transaction: a failed reply
// insert leaves the ticket row untouched.
func (r *fakeTicketRepo) UpdateGuardedWithReply(ctx context.Context, ticket *domain.Ticket, reply *domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	if r.replyErr != nil {
		return r.replyErr
	}
	if err := r.replies.Create(ctx, reply); err != nil {
		return err
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeStaffRepo struct {
	mu    sync.Mutex
	staff map[string]domain.StaffMember
}

func newFakeStaffRepo(members ...domain.StaffMember) *fakeStaffRepo {
	repo := &fakeStaffRepo{staff: make(map[string]domain.StaffMember)}
	for _, member := range members {
		repo.staff[member.ID] = member
	}
	return repo
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := member
	return &copied, nil
}

func (r *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.staff {
		if member.Email == email {
			copied := member
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeCustomerRepo struct {
	mu         sync.Mutex
	customers  map[string]domain.Customer
	planLevels map[string]domain.PriorityLevel
}

func newFakeCustomerRepo(customers ...domain.Customer) *fakeCustomerRepo {
	repo := &fakeCustomerRepo{
		customers:  make(map[string]domain.Customer),
		planLevels: make(map[string]domain.PriorityLevel),
	}
	for _, customer := range customers {
		repo.customers[customer.ID] = customer
	}
	return repo
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := customer
	return &copied, nil
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, customer := range r.customers {
		if customer.Email == email {
			copied := customer
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) GetActivePlanLevel(_ context.Context, customerID string) (domain.PriorityLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.planLevels[customerID], nil
}

type fakeReplyRepo struct {
	mu      sync.Mutex
	replies []domain.Reply
	nextSeq int64
}

func newFakeReplyRepo() *fakeReplyRepo { return &fakeReplyRepo{} }

func (r *fakeReplyRepo) Create(_ context.Context, reply *domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	r.nextSeq++
	reply.Seq = r.nextSeq
	reply.SentAt = time.Now()
	r.replies = append(r.replies, *reply)
	return nil
}

func (r *fakeReplyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Reply, 0)
	for _, reply := range r.replies {
		if reply.TicketID == ticketID {
			out = append(out, reply)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo { return &fakeHistoryRepo{} }

func (r *fakeHistoryRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	r.entries = append(r.entries, *history)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TicketHistory, 0)
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// fakeRuleRepo mirrors the transactional contract of the SQL store: a
// mutation that would break the active-set ordering invariant is rejected
// and leaves the stored rules untouched.
type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[string]domain.SupportPriorityLoyaltyRule
}

func newFakeRuleRepo(rules ...domain.SupportPriorityLoyaltyRule) *fakeRuleRepo {
	repo := &fakeRuleRepo{rules: make(map[string]domain.SupportPriorityLoyaltyRule)}
	for _, rule := range rules {
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		repo.rules[rule.ID] = rule
	}
	return repo
}

func (r *fakeRuleRepo) activeSetLocked() []domain.SupportPriorityLoyaltyRule {
	active := make([]domain.SupportPriorityLoyaltyRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	return active
}

func (r *fakeRuleRepo) List(_ context.Context) ([]domain.SupportPriorityLoyaltyRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SupportPriorityLoyaltyRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinTotalSpend < out[j].MinTotalSpend })
	return out, nil
}

func (r *fakeRuleRepo) ListActive(_ context.Context) ([]domain.SupportPriorityLoyaltyRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSetLocked(), nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := rule
	return &copied, nil
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.SupportPriorityLoyaltyRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	candidate := append(r.activeSetLocked(), *rule)
	if rule.IsActive {
		if err := domain.ValidateRuleOrdering(candidate); err != nil {
			return apperrors.NewPriorityOrderingViolation(err.Error())
		}
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.SupportPriorityLoyaltyRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rules[rule.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := stored
	updated.MinTotalSpend = rule.MinTotalSpend
	updated.PriorityLevel = rule.PriorityLevel
	updated.IsActive = rule.IsActive
	updated.UpdatedAt = time.Now()

	candidate := make([]domain.SupportPriorityLoyaltyRule, 0, len(r.rules))
	for id, existing := range r.rules {
		if id == rule.ID {
			existing = updated
		}
		if existing.IsActive {
			candidate = append(candidate, existing)
		}
	}
	if err := domain.ValidateRuleOrdering(candidate); err != nil {
		return apperrors.NewPriorityOrderingViolation(err.Error())
	}
	r.rules[rule.ID] = updated
	return nil
}

func (r *fakeRuleRepo) Toggle(_ context.Context, id string) (*domain.SupportPriorityLoyaltyRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	flipped := stored
	flipped.IsActive = !flipped.IsActive
	flipped.UpdatedAt = time.Now()

	candidate := make([]domain.SupportPriorityLoyaltyRule, 0, len(r.rules))
	for ruleID, existing := range r.rules {
		if ruleID == id {
			existing = flipped
		}
		if existing.IsActive {
			candidate = append(candidate, existing)
		}
	}
	if err := domain.ValidateRuleOrdering(candidate); err != nil {
		return nil, apperrors.NewPriorityOrderingViolation(err.Error())
	}
	r.rules[id] = flipped
	copied := flipped
	return &copied, nil
}

func (r *fakeRuleRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rules, id)
	return nil
}

// fixedPriority is a PriorityResolver returning a constant level.
type fixedPriority struct {
	level domain.PriorityLevel
}

func (f fixedPriority) ResolveForCustomer(context.Context, string) (domain.PriorityLevel, error) {
	return f.level, nil
}

// fixedSLASource returns a constant SLA pair for every matrix cell.
type fixedSLASource struct {
	rule *domain.SLARule
	err  error
}

func (f fixedSLASource) Resolve(context.Context, domain.TicketSeverity, domain.PriorityLevel) (*domain.SLARule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rule, nil
}
