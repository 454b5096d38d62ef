package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// DefaultFreeMonthlyLimit is the number of generations a free plan allows per calendar month.
const DefaultFreeMonthlyLimit = 5

// ReasonMonthlyLimit is the denial reason for an exhausted free allowance.
const ReasonMonthlyLimit = "monthly limit reached"

// ResultCounter counts persisted results. Implemented by repositories.GenerationRepository.
type ResultCounter interface {
	CountResultsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Entitlement is the outcome of a quota check. Limit is -1 for unlimited plans.
type Entitlement struct {
	Allowed     bool
	Reason      string
	Used        int
	Limit       int
	PeriodStart time.Time
}

// QuotaGuard decides whether a user may run the pipeline again this month.
//
// It is a read-only gate and never caches: the count is read from the store on every call.
type QuotaGuard struct {
	counter  ResultCounter
	limit    int
	location *time.Location
	now      func() time.Time
}

// NewQuotaGuard creates a guard with the given free-plan limit. A non-positive limit uses [DefaultFreeMonthlyLimit].
// Months are computed in loc, or local time when nil.
func NewQuotaGuard(counter ResultCounter, limit int, loc *time.Location) *QuotaGuard {
	if limit <= 0 {
		limit = DefaultFreeMonthlyLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &QuotaGuard{counter: counter, limit: limit, location: loc, now: time.Now}
}

// PeriodStart returns the start of the current calendar month.
func (q *QuotaGuard) PeriodStart() time.Time {
	return shared.StartOfMonth(q.now().In(q.location))
}

// CheckEntitlement allows pro plans unconditionally and free plans while fewer than the limit
// results exist this month. A store failure is returned as an error, never as a denial.
func (q *QuotaGuard) CheckEntitlement(ctx context.Context, userID string, plan models.Plan) (Entitlement, error) {
	start := q.PeriodStart()
	if plan.Unlimited() {
		return Entitlement{Allowed: true, Limit: -1, PeriodStart: start}, nil
	}

	used, err := q.counter.CountResultsSince(ctx, userID, start)
	if err != nil {
		return Entitlement{}, fmt.Errorf("failed to count generations: %w", err)
	}

	ent := Entitlement{Allowed: true, Used: used, Limit: q.limit, PeriodStart: start}
	if used >= q.limit {
		ent.Allowed = false
		ent.Reason = ReasonMonthlyLimit
	}
	return ent, nil
}

// Usage returns the user's [models.UsageWindow] for the current month. Pro plans are counted too.
func (q *QuotaGuard) Usage(ctx context.Context, userID string, plan models.Plan) (models.UsageWindow, error) {
	start := q.PeriodStart()
	used, err := q.counter.CountResultsSince(ctx, userID, start)
	if err != nil {
		return models.UsageWindow{}, fmt.Errorf("failed to count generations: %w", err)
	}

	window := models.UsageWindow{UserID: userID, PeriodStart: start, GenerationCount: used, Limit: q.limit}
	if plan.Unlimited() {
		window.Limit = -1
	}
	return window, nil
}
